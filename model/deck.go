package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/bytedance/sonic"
)

// SingleUserID 个人使用，固定的用户ID
const SingleUserID = "1"

// DeckCards 卡片ID到张数的映射，数据库中以JSON文本存储
type DeckCards map[string]int

// Value 实现 driver.Valuer
func (d DeckCards) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := sonic.Marshal(map[string]int(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (d *DeckCards) Scan(v interface{}) error {
	var raw []byte
	switch vt := v.(type) {
	case nil:
		*d = DeckCards{}
		return nil
	case string:
		raw = []byte(vt)
	case []byte:
		raw = vt
	default:
		return fmt.Errorf("invalid type for deck cards: %T", v)
	}
	out := DeckCards{}
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode deck cards: %w", err)
		}
	}
	*d = out
	return nil
}

// Total 卡组总张数
func (d DeckCards) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Deck 卡组
type Deck struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"user_id" gorm:"size:36;index"`
	Title       string    `json:"title" gorm:"size:255"`
	Cards       DeckCards `json:"cards" gorm:"type:text"`
	ThumbnailID *string   `json:"thumbnail_id" gorm:"size:32"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// TableName 表名
func (Deck) TableName() string {
	return "decks"
}

// DeckSummary 卡组列表项
type DeckSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ThumbnailID *string   `json:"thumbnail_id"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// Backup 全量备份数据
type Backup struct {
	Version    int       `json:"version"`
	ExportedAt Timestamp `json:"exported_at"`
	Cards      []Card    `json:"cards"`
	Decks      []Deck    `json:"decks"`
}
