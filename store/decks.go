package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cardbase/model"
)

// ListDecks 卡组列表，按更新时间倒序
func (s *Store) ListDecks(ctx context.Context) ([]model.DeckSummary, error) {
	var decks []model.DeckSummary
	err := s.db.WithContext(ctx).Model(&model.Deck{}).
		Select("id", "title", "thumbnail_id", "updated_at").
		Where("user_id = ?", model.SingleUserID).
		Order("updated_at desc").
		Find(&decks).Error
	if err != nil {
		return nil, err
	}
	return decks, nil
}

// GetDeck 卡组详情
func (s *Store) GetDeck(ctx context.Context, id string) (model.Deck, error) {
	var deck model.Deck
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return deck, ErrDeckNotFound
	}
	return deck, err
}

// SaveDeck ID为空时新建，否则更新。返回卡组ID和是否新建
func (s *Store) SaveDeck(ctx context.Context, deck model.Deck) (string, bool, error) {
	deck.Title = strings.TrimSpace(deck.Title)
	if deck.Title == "" || deck.Cards == nil {
		return "", false, ErrInvalidDeck
	}
	now := model.Now()

	if deck.ID == "" {
		deck.ID = uuid.NewString()
		deck.UserID = model.SingleUserID
		deck.CreatedAt = now
		deck.UpdatedAt = now
		if err := s.db.WithContext(ctx).Create(&deck).Error; err != nil {
			return "", false, err
		}
		return deck.ID, true, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Deck{}).Where("id = ?", deck.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrDeckNotFound
		}
		return tx.Model(&model.Deck{}).Where("id = ?", deck.ID).Updates(map[string]interface{}{
			"title":        deck.Title,
			"cards":        deck.Cards,
			"thumbnail_id": deck.ThumbnailID,
			"updated_at":   now,
		}).Error
	})
	if err != nil {
		return "", false, err
	}
	return deck.ID, false, nil
}

// DeleteDeck 删除卡组
func (s *Store) DeleteDeck(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Deck{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeckNotFound
	}
	return nil
}
