// Package textparse 从卡片的自由文本字段中提取括号/引号片段。
//
// 链接条件（link）的解析优先级：
//  1. 〔…〕 [...] 【…】 括起的片段是特征要求
//  2. 「…」 『…』 括起的片段是名称要求
//  3. 以上两种片段都不存在时，按 "/" 切分，每段作为名称要求
//
// 括号不闭合、内容为空的片段直接忽略，不报错。
package textparse

import (
	"regexp"
	"strings"
)

// Kind 要求的种类
type Kind string

const (
	KindTrait Kind = "trait"
	KindName  Kind = "name"
)

// Requirement 从链接条件中提取的一条要求
type Requirement struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// PilotMarkers 规则文本中表示"这张卡可作为驾驶员"的标记
var PilotMarkers = []string{"【パイロット】", "【Pilot】"}

var (
	bracketRe = regexp.MustCompile(`〔([^〔〕]*)〕|\[([^\[\]]*)\]|【([^【】]*)】`)
	quoteRe   = regexp.MustCompile(`「([^「」]*)」|『([^『』]*)』`)
	// 特征栏还会用全角/半角圆括号，例如 (地球連邦)
	traitTagRe = regexp.MustCompile(`〔([^〔〕]*)〕|\[([^\[\]]*)\]|【([^【】]*)】|（([^（）]*)）|\(([^()]*)\)`)

	aliasRes = []*regexp.Regexp{
		regexp.MustCompile(`このカードの(?:カード)?名(?:称)?は[、,]?\s*[「『]([^「」『』]+)[」』]\s*としても扱う`),
		regexp.MustCompile(`(?i)this card'?s name is also treated as\s*[「『"'“‘]([^「」『』"'”’]+)[」』"'”’]`),
	}
)

// NoLink 链接条件为空或为 "-" 时返回 true
func NoLink(link string) bool {
	link = strings.TrimSpace(link)
	return link == "" || link == "-"
}

// ParseLink 解析链接条件，特征要求在前，名称要求在后，各自保持出现顺序
func ParseLink(link string) []Requirement {
	if NoLink(link) {
		return nil
	}

	bracketSpans := bracketRe.FindAllStringSubmatch(link, -1)
	quoteSpans := quoteRe.FindAllStringSubmatch(link, -1)

	var reqs []Requirement
	if len(bracketSpans) == 0 && len(quoteSpans) == 0 {
		for _, seg := range strings.FieldsFunc(link, isSlash) {
			if seg = strings.TrimSpace(seg); seg != "" {
				reqs = append(reqs, Requirement{Kind: KindName, Value: seg})
			}
		}
		return reqs
	}

	for _, m := range bracketSpans {
		if v := firstCapture(m); v != "" {
			reqs = append(reqs, Requirement{Kind: KindTrait, Value: v})
		}
	}
	for _, m := range quoteSpans {
		if v := firstCapture(m); v != "" {
			reqs = append(reqs, Requirement{Kind: KindName, Value: v})
		}
	}
	return reqs
}

// TraitTags 解析特征栏中的所有括号标签
func TraitTags(traits string) []string {
	var tags []string
	for _, m := range traitTagRe.FindAllStringSubmatch(traits, -1) {
		if v := firstCapture(m); v != "" {
			tags = append(tags, v)
		}
	}
	return tags
}

// HasPilotMarker 规则文本是否包含驾驶员标记
func HasPilotMarker(text string) bool {
	return markerEnd(text) >= 0
}

// PilotDisplayName 驾驶员标记之后的第一个「…」/『…』片段
func PilotDisplayName(text string) (string, bool) {
	end := markerEnd(text)
	if end < 0 {
		return "", false
	}
	m := quoteRe.FindStringSubmatch(text[end:])
	if m == nil {
		return "", false
	}
	v := firstCapture(m)
	return v, v != ""
}

// Alias "这张卡的名称也视为「X」" 中的 X
func Alias(text string) (string, bool) {
	for _, re := range aliasRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := firstCapture(m); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// markerEnd 最早出现的驾驶员标记结束位置，没有时返回 -1
func markerEnd(text string) int {
	best, end := -1, -1
	for _, marker := range PilotMarkers {
		if i := strings.Index(text, marker); i >= 0 && (best < 0 || i < best) {
			best, end = i, i+len(marker)
		}
	}
	return end
}

func firstCapture(m []string) string {
	for _, g := range m[1:] {
		if g = strings.TrimSpace(g); g != "" {
			return g
		}
	}
	return ""
}

func isSlash(r rune) bool {
	return r == '/' || r == '／'
}
