package service

import (
	"path"
	"strconv"
	"strings"

	"cardbase/model"
)

// Placeholder 没有数值时显示的占位符
const Placeholder = "-"

// StatLabels 卡片数值的显示文本
type StatLabels struct {
	Level string `json:"level"`
	Cost  string `json:"cost"`
	AP    string `json:"ap"`
	HP    string `json:"hp"`
}

// Labels 计算卡片的数值显示。驾驶员的 AP/HP 是加成值，总是带符号
func Labels(c model.Card) StatLabels {
	pilot := IsPilot(c)
	return StatLabels{
		Level: plain(c.Level),
		Cost:  plain(c.Cost),
		AP:    buff(c.AP, pilot),
		HP:    buff(c.HP, pilot),
	}
}

func plain(v int) string {
	if v == 0 {
		return Placeholder
	}
	return strconv.Itoa(v)
}

func buff(v int, pilot bool) string {
	if !pilot {
		return plain(v)
	}
	if v < 0 {
		return strconv.Itoa(v)
	}
	return "+" + strconv.Itoa(v)
}

// ImagePath 卡图地址，没有卡图时返回空串由前端显示占位图
func ImagePath(prefix string, c model.Card) string {
	if c.ImageURL == "" {
		return ""
	}
	if prefix == "" {
		prefix = "/images/"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + path.Base(c.ImageURL)
}
