package model

import (
	"slices"
	"strconv"
	"strings"
)

// 排序字段
const (
	SortID     = "id"
	SortLevel  = "level"
	SortCost   = "cost"
	SortAP     = "ap"
	SortHP     = "hp"
	SortRarity = "rarity"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Facet 一个可多选的筛选维度
type Facet string

const (
	FacetColors        Facet = "colors"
	FacetTypes         Facet = "types"
	FacetCosts         Facet = "costs"
	FacetLevels        Facet = "levels"
	FacetRarities      Facet = "rarities"
	FacetExpansionSets Facet = "expansion_sets"
	FacetZones         Facet = "zones"
	FacetAPs           Facet = "aps"
	FacetHPs           Facet = "hps"
)

// Numeric 数值维度，比较前双方都转换为整数
func (f Facet) Numeric() bool {
	switch f {
	case FacetCosts, FacetLevels, FacetAPs, FacetHPs:
		return true
	}
	return false
}

// FilterState 筛选状态。值类型，状态迁移返回新值，不修改原值
type FilterState struct {
	Text  string `json:"text" form:"search"`
	Sort  string `json:"sort" form:"sort"`
	Order string `json:"order" form:"order"`

	Colors        []string `json:"colors"`
	Types         []string `json:"types"`
	Costs         []string `json:"costs"`
	Levels        []string `json:"levels"`
	Rarities      []string `json:"rarities"`
	ExpansionSets []string `json:"expansion_sets"`
	Zones         []string `json:"zones"`
	APs           []string `json:"aps"`
	HPs           []string `json:"hps"`

	// 数值范围，闭区间，nil 表示不限
	APMin *int `json:"ap_min,omitempty"`
	APMax *int `json:"ap_max,omitempty"`
	HPMin *int `json:"hp_min,omitempty"`
	HPMax *int `json:"hp_max,omitempty"`
}

// DefaultFilterState 默认状态：ID升序，无筛选
func DefaultFilterState() FilterState {
	return FilterState{Sort: SortID, Order: OrderAsc}
}

// Values 返回某个维度当前选中的值
func (f FilterState) Values(facet Facet) []string {
	switch facet {
	case FacetColors:
		return f.Colors
	case FacetTypes:
		return f.Types
	case FacetCosts:
		return f.Costs
	case FacetLevels:
		return f.Levels
	case FacetRarities:
		return f.Rarities
	case FacetExpansionSets:
		return f.ExpansionSets
	case FacetZones:
		return f.Zones
	case FacetAPs:
		return f.APs
	case FacetHPs:
		return f.HPs
	}
	return nil
}

func (f FilterState) withValues(facet Facet, values []string) FilterState {
	switch facet {
	case FacetColors:
		f.Colors = values
	case FacetTypes:
		f.Types = values
	case FacetCosts:
		f.Costs = values
	case FacetLevels:
		f.Levels = values
	case FacetRarities:
		f.Rarities = values
	case FacetExpansionSets:
		f.ExpansionSets = values
	case FacetZones:
		f.Zones = values
	case FacetAPs:
		f.APs = values
	case FacetHPs:
		f.HPs = values
	}
	return f
}

// AllFacets 所有维度
var AllFacets = []Facet{
	FacetColors, FacetTypes, FacetCosts, FacetLevels, FacetRarities,
	FacetExpansionSets, FacetZones, FacetAPs, FacetHPs,
}

// WithText 设置自由文本
func (f FilterState) WithText(text string) FilterState {
	f.Text = text
	return f
}

// WithSort 设置排序字段和方向
func (f FilterState) WithSort(field, order string) FilterState {
	f.Sort = field
	f.Order = order
	return f
}

// WithRange 设置AP/HP范围
func (f FilterState) WithRange(apMin, apMax, hpMin, hpMax *int) FilterState {
	f.APMin, f.APMax, f.HPMin, f.HPMax = apMin, apMax, hpMin, hpMax
	return f
}

// Toggle 切换某个维度中的一个选项：已选则移除，未选则追加
func (f FilterState) Toggle(facet Facet, value string) FilterState {
	value = NormalizeOption(facet, value)
	current := f.Values(facet)
	var next []string
	if slices.Contains(current, value) {
		next = slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == value })
	} else {
		next = append(slices.Clone(current), value)
	}
	return f.withValues(facet, next)
}

// ClearFacets 清空所有维度和范围，保留文本和排序
func (f FilterState) ClearFacets() FilterState {
	cleared := DefaultFilterState()
	cleared.Text = f.Text
	cleared.Sort = f.Sort
	cleared.Order = f.Order
	return cleared
}

// Reset 恢复默认状态
func (f FilterState) Reset() FilterState {
	return DefaultFilterState()
}

// Active 是否有任何维度或范围处于生效状态
func (f FilterState) Active() bool {
	for _, facet := range AllFacets {
		if len(f.Values(facet)) > 0 {
			return true
		}
	}
	return f.APMin != nil || f.APMax != nil || f.HPMin != nil || f.HPMax != nil
}

// Normalized 补全排序默认值，规整数值选项
func (f FilterState) Normalized() FilterState {
	switch f.Sort {
	case SortID, SortLevel, SortCost, SortAP, SortHP, SortRarity:
	default:
		f.Sort = SortID
	}
	if !strings.EqualFold(f.Order, OrderDesc) {
		f.Order = OrderAsc
	} else {
		f.Order = OrderDesc
	}
	for _, facet := range AllFacets {
		values := f.Values(facet)
		if len(values) == 0 {
			continue
		}
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, NormalizeOption(facet, v))
		}
		f = f.withValues(facet, out)
	}
	return f
}

// NormalizeOption 数值维度的选项规整为十进制整数字符串（"03" -> "3"），
// 无法解析的值原样保留，筛选时视为不匹配
func NormalizeOption(facet Facet, value string) string {
	value = strings.TrimSpace(value)
	if !facet.Numeric() {
		return value
	}
	if n, err := strconv.Atoi(value); err == nil {
		return strconv.Itoa(n)
	}
	return value
}
