package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cardbase/model"
)

// BackupVersion 备份格式版本
const BackupVersion = 1

// Export 导出全部卡片和卡组
func (s *Store) Export(ctx context.Context) (model.Backup, error) {
	backup := model.Backup{Version: BackupVersion, ExportedAt: model.Now()}
	db := s.db.WithContext(ctx)
	if err := db.Order("id").Find(&backup.Cards).Error; err != nil {
		return backup, fmt.Errorf("export cards: %w", err)
	}
	if err := db.Order("created_at").Find(&backup.Decks).Error; err != nil {
		return backup, fmt.Errorf("export decks: %w", err)
	}
	return backup, nil
}

// Import 在一个事务中恢复备份，任何一行失败都整体回滚
func (s *Store) Import(ctx context.Context, backup model.Backup) error {
	now := model.Now()
	cards := make([]model.Card, 0, len(backup.Cards))
	for _, c := range backup.Cards {
		c.ID = NormalizeID(c.ID)
		if !ValidID(c.ID) || c.Name == "" {
			return fmt.Errorf("%w: card %q", ErrInvalidCard, c.ID)
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = time.Now()
		}
		cards = append(cards, c)
	}
	decks := make([]model.Deck, 0, len(backup.Decks))
	for _, d := range backup.Decks {
		if d.ID == "" || d.Title == "" {
			return fmt.Errorf("%w: deck %q", ErrInvalidDeck, d.ID)
		}
		if d.UserID == "" {
			d.UserID = model.SingleUserID
		}
		if d.Cards == nil {
			d.Cards = model.DeckCards{}
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = now
		}
		decks = append(decks, d)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cards) > 0 {
			if err := upsertCards(tx, cards); err != nil {
				return fmt.Errorf("import cards: %w", err)
			}
		}
		if len(decks) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "cards", "thumbnail_id", "updated_at"}),
			}).CreateInBatches(decks, 100).Error
			if err != nil {
				return fmt.Errorf("import decks: %w", err)
			}
		}
		return nil
	})
}
