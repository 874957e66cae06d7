package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cardbase/model"
)

// NormalizeID 卡片ID统一为大写
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

var idPattern = regexp.MustCompile(`^[A-Z0-9]+-[A-Z0-9]+$`)

// ValidID 判断已规范化的ID是否为 <收录弹>-<编号> 形式。卡图以ID命名，不能含路径字符
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ListCards 查询卡片。f 为 nil 时返回全部；否则只做与内存筛选语义一致的预筛选，
// 文本检索和最终排序由 service.ComputeVisibleCards 负责
func (s *Store) ListCards(ctx context.Context, f *model.FilterState) ([]model.Card, error) {
	query := s.db.WithContext(ctx).Model(&model.Card{})
	if f != nil {
		query = applyPrefilter(query, *f)
	}

	var cards []model.Card
	if err := query.Order("id").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func applyPrefilter(query *gorm.DB, f model.FilterState) *gorm.DB {
	exact := []struct {
		col    string
		values []string
	}{
		{"color", f.Colors},
		{"type", f.Types},
		{"rarity", f.Rarities},
		{"expansion_set", f.ExpansionSets},
	}
	for _, e := range exact {
		if len(e.values) > 0 {
			query = query.Where(e.col+" IN ?", e.values)
		}
	}

	numeric := []struct {
		col    string
		values []string
	}{
		{"cost", f.Costs},
		{"level", f.Levels},
		{"ap", f.APs},
		{"hp", f.HPs},
	}
	for _, n := range numeric {
		if len(n.values) == 0 {
			continue
		}
		ints := make([]int, 0, len(n.values))
		for _, v := range n.values {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				ints = append(ints, i)
			}
		}
		if len(ints) == 0 {
			// 全部选项都不是数字，不可能匹配
			return query.Where("1 = 0")
		}
		query = query.Where(n.col+" IN ?", ints)
	}

	if len(f.Zones) > 0 {
		var clauses []clause.Expression
		for _, z := range f.Zones {
			clauses = append(clauses, clause.Expr{SQL: `zone LIKE ? ESCAPE '!'`, Vars: []interface{}{"%" + escapeLike(z) + "%"}})
		}
		query = query.Where(clause.Or(clauses...))
	}

	if f.APMin != nil {
		query = query.Where("ap >= ?", *f.APMin)
	}
	if f.APMax != nil {
		query = query.Where("ap <= ?", *f.APMax)
	}
	if f.HPMin != nil {
		query = query.Where("hp >= ?", *f.HPMin)
	}
	if f.HPMax != nil {
		query = query.Where("hp <= ?", *f.HPMax)
	}
	return query
}

// GetCard 按ID获取
func (s *Store) GetCard(ctx context.Context, id string) (model.Card, error) {
	var card model.Card
	err := s.db.WithContext(ctx).Where("id = ?", NormalizeID(id)).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return card, ErrCardNotFound
	}
	return card, err
}

// UpsertCard 新增或整行更新
func (s *Store) UpsertCard(ctx context.Context, card model.Card) error {
	return s.UpsertCards(ctx, []model.Card{card})
}

// UpsertCards 在一个事务中批量新增或更新
func (s *Store) UpsertCards(ctx context.Context, cards []model.Card) error {
	if len(cards) == 0 {
		return nil
	}
	rows := make([]model.Card, len(cards))
	for i, c := range cards {
		c.ID = NormalizeID(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if !ValidID(c.ID) || c.Name == "" {
			return fmt.Errorf("%w: %q", ErrInvalidCard, c.ID)
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = time.Now()
		}
		rows[i] = c
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertCards(tx, rows)
	})
}

func upsertCards(tx *gorm.DB, rows []model.Card) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

// DeleteCard 删除卡片；被任意卡组引用时返回 *CardInUseError
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	id = NormalizeID(id)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		decks, err := decksReferencing(tx, id)
		if err != nil {
			return err
		}
		if len(decks) > 0 {
			titles := make([]string, 0, len(decks))
			for _, d := range decks {
				titles = append(titles, d.Title)
			}
			return &CardInUseError{ID: id, Decks: titles}
		}

		res := tx.Where("id = ?", id).Delete(&model.Card{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCardNotFound
		}
		return nil
	})
}

// RenameCard 修改卡片ID，同时改写所有引用它的卡组，返回被改写的卡组数
func (s *Store) RenameCard(ctx context.Context, oldID, newID string) (int, error) {
	oldID, newID = NormalizeID(oldID), NormalizeID(newID)
	if oldID == "" || !ValidID(newID) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, newID)
	}

	updated := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Card{}).Where("id = ?", newID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCardExists
		}

		var card model.Card
		err := tx.Where("id = ?", oldID).First(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCardNotFound
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"id": newID, "updated_at": time.Now()}
		// 卡图按 <ID>.<扩展名> 命名，跟随新ID
		if strings.HasPrefix(card.ImageURL, oldID+".") {
			updates["image_url"] = newID + strings.TrimPrefix(card.ImageURL, oldID)
		}
		if err := tx.Model(&model.Card{}).Where("id = ?", oldID).Updates(updates).Error; err != nil {
			return err
		}

		decks, err := decksReferencing(s.lockFor(tx), oldID)
		if err != nil {
			return err
		}
		for _, d := range decks {
			d.Cards[newID] += d.Cards[oldID]
			delete(d.Cards, oldID)
			err := tx.Model(&model.Deck{}).Where("id = ?", d.ID).
				Updates(map[string]interface{}{"cards": d.Cards, "updated_at": model.Now()}).Error
			if err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *Store) lockFor(tx *gorm.DB) *gorm.DB {
	if s.isMySQL() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// decksReferencing LIKE 粗筛后解码确认，只返回确实以该ID为键的卡组
func decksReferencing(tx *gorm.DB, id string) ([]model.Deck, error) {
	var candidates []model.Deck
	err := tx.Where(`cards LIKE ? ESCAPE '!'`, deckKeyPattern(id)).Order("title").Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	decks := candidates[:0]
	for _, d := range candidates {
		if _, ok := d.Cards[id]; ok {
			decks = append(decks, d)
		}
	}
	return decks, nil
}
