package service

import (
	"strings"

	"cardbase/model"
	"cardbase/util/textparse"
)

// IsPilot 类型为 PILOT，或规则文本带驾驶员标记
func IsPilot(c model.Card) bool {
	return strings.EqualFold(strings.TrimSpace(c.Type), model.TypePilot) || textparse.HasPilotMarker(c.Text)
}

// IsUnit 类型为 UNIT（不区分大小写）
func IsUnit(c model.Card) bool {
	return strings.EqualFold(strings.TrimSpace(c.Type), model.TypeUnit)
}

// PilotName 驾驶员的有效名称：标记之后第一个引号片段，没有时为卡名
func PilotName(c model.Card) string {
	if name, ok := textparse.PilotDisplayName(c.Text); ok {
		return name
	}
	return c.Name
}

// pilotProfile 参与匹配的驾驶员信息
type pilotProfile struct {
	names  []string
	traits []string
}

func profileOf(c model.Card) pilotProfile {
	p := pilotProfile{
		names:  []string{c.Name},
		traits: textparse.TraitTags(c.Traits),
	}
	if display := PilotName(c); display != c.Name {
		p.names = append(p.names, display)
	}
	if alias, ok := textparse.Alias(c.Text); ok {
		p.names = append(p.names, alias)
	}
	return p
}

// satisfies 任一特征要求与标签完全相等，或任一名称要求是某个名称的子串
func (p pilotProfile) satisfies(reqs []textparse.Requirement) bool {
	for _, req := range reqs {
		switch req.Kind {
		case textparse.KindTrait:
			for _, tag := range p.traits {
				if tag == req.Value {
					return true
				}
			}
		case textparse.KindName:
			for _, name := range p.names {
				if name != "" && strings.Contains(name, req.Value) {
					return true
				}
			}
		}
	}
	return false
}

// unitRequirements 单位卡的链接要求，不是单位或没有链接条件时返回 nil
func unitRequirements(c model.Card) []textparse.Requirement {
	if !IsUnit(c) || textparse.NoLink(c.Link) {
		return nil
	}
	return textparse.ParseLink(c.Link)
}

// FindLinkedPilots 满足单位卡链接条件的所有驾驶员，保持目录顺序
func FindLinkedPilots(unit model.Card, catalog []model.Card) []model.Card {
	linked := make([]model.Card, 0)
	reqs := unitRequirements(unit)
	if len(reqs) == 0 {
		return linked
	}
	for _, c := range catalog {
		if IsPilot(c) && profileOf(c).satisfies(reqs) {
			linked = append(linked, c)
		}
	}
	return linked
}

// FindLinkedUnits 链接条件可由该驾驶员满足的所有单位卡，保持目录顺序
func FindLinkedUnits(pilot model.Card, catalog []model.Card) []model.Card {
	linked := make([]model.Card, 0)
	if !IsPilot(pilot) {
		return linked
	}
	profile := profileOf(pilot)
	for _, u := range catalog {
		reqs := unitRequirements(u)
		if len(reqs) > 0 && profile.satisfies(reqs) {
			linked = append(linked, u)
		}
	}
	return linked
}
