package service

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"cardbase/model"
	"cardbase/util/natsort"
)

// ComputeVisibleCards 按筛选状态过滤并排序目录，纯函数，不修改入参
func ComputeVisibleCards(catalog []model.Card, filters model.FilterState) []model.Card {
	filters = filters.Normalized()
	terms := searchTerms(filters.Text)

	visible := make([]model.Card, 0, len(catalog))
	for _, c := range catalog {
		if matchesText(c, terms) && matchesFacets(c, filters) && matchesRange(c, filters) {
			visible = append(visible, c)
		}
	}
	SortCards(visible, filters.Sort, filters.Order)
	return visible
}

// searchTerms 小写化，全角空格转半角，按空白切分
func searchTerms(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "　", " ")
	return strings.Fields(text)
}

func matchesText(c model.Card, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{c.Name, c.ID, c.Text, c.Traits}, " "))
	for _, term := range terms {
		if strings.HasPrefix(term, "-") {
			// 单独的 "-" 忽略
			if len(term) > 1 && strings.Contains(haystack, term[1:]) {
				return false
			}
			continue
		}
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func matchesFacets(c model.Card, f model.FilterState) bool {
	return matchExact(f.Colors, c.Color) &&
		matchExact(f.Types, c.Type) &&
		matchExact(f.Rarities, c.Rarity) &&
		matchExact(f.ExpansionSets, c.ExpansionSet) &&
		matchSubstring(f.Zones, c.Zone) &&
		matchNumber(f.Costs, c.Cost) &&
		matchNumber(f.Levels, c.Level) &&
		matchNumber(f.APs, c.AP) &&
		matchNumber(f.HPs, c.HP)
}

func matchExact(options []string, value string) bool {
	return len(options) == 0 || slices.Contains(options, value)
}

func matchSubstring(options []string, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if strings.Contains(value, opt) {
			return true
		}
	}
	return false
}

// matchNumber 选项无法转换为整数时视为不匹配
func matchNumber(options []string, value int) bool {
	if len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if n, err := strconv.Atoi(strings.TrimSpace(opt)); err == nil && n == value {
			return true
		}
	}
	return false
}

func matchesRange(c model.Card, f model.FilterState) bool {
	return inRange(c.AP, f.APMin, f.APMax) && inRange(c.HP, f.HPMin, f.HPMax)
}

func inRange(v int, lo, hi *int) bool {
	return (lo == nil || v >= *lo) && (hi == nil || v <= *hi)
}

// SortCards 原地稳定排序。id 使用自然排序，其余字段按数值/字典序
func SortCards(cards []model.Card, field, order string) {
	compare := comparator(field)
	if order == model.OrderDesc {
		slices.SortStableFunc(cards, func(a, b model.Card) int { return compare(b, a) })
		return
	}
	slices.SortStableFunc(cards, compare)
}

func comparator(field string) func(a, b model.Card) int {
	switch field {
	case model.SortLevel:
		return func(a, b model.Card) int { return cmp.Compare(a.Level, b.Level) }
	case model.SortCost:
		return func(a, b model.Card) int { return cmp.Compare(a.Cost, b.Cost) }
	case model.SortAP:
		return func(a, b model.Card) int { return cmp.Compare(a.AP, b.AP) }
	case model.SortHP:
		return func(a, b model.Card) int { return cmp.Compare(a.HP, b.HP) }
	case model.SortRarity:
		return func(a, b model.Card) int { return strings.Compare(a.Rarity, b.Rarity) }
	}
	return func(a, b model.Card) int { return natsort.Compare(a.ID, b.ID) }
}

// Neighbors 可见序列中某张卡的前一张和后一张，不存在时为空串
func Neighbors(visible []model.Card, id string) (prev, next string) {
	i := slices.IndexFunc(visible, func(c model.Card) bool { return c.ID == id })
	if i < 0 {
		return "", ""
	}
	if i > 0 {
		prev = visible[i-1].ID
	}
	if i < len(visible)-1 {
		next = visible[i+1].ID
	}
	return prev, next
}
