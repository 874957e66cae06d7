package model

import (
	"strconv"
	"strings"
	"time"
)

// 卡片类型
const (
	TypeUnit      = "UNIT"
	TypePilot     = "PILOT"
	TypeBase      = "BASE"
	TypeCommand   = "COMMAND"
	TypeUnitToken = "UNIT TOKEN"
)

// Card 卡片记录，查询周期内视为只读
type Card struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Name         string    `json:"name" gorm:"size:255;index"`
	Rarity       string    `json:"rarity" gorm:"size:16"`
	ExpansionSet string    `json:"expansion_set" gorm:"size:32;index"`
	Level        int       `json:"level"`
	Cost         int       `json:"cost"`
	Color        string    `json:"color" gorm:"size:32"`
	Type         string    `json:"type" gorm:"size:32;index"`
	Text         string    `json:"text" gorm:"type:text"`
	Zone         string    `json:"zone" gorm:"size:64"`
	Traits       string    `json:"traits" gorm:"size:255"`
	Link         string    `json:"link" gorm:"size:255"`
	AP           int       `json:"ap"`
	HP           int       `json:"hp"`
	ImageURL     string    `json:"image_url" gorm:"size:255"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 表名
func (Card) TableName() string {
	return "cards"
}

// ParseStat 宽松解析数值列：取开头的整数部分，"-"、空串或非数字返回0
func ParseStat(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
