package textparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func trait(v string) Requirement { return Requirement{Kind: KindTrait, Value: v} }
func name(v string) Requirement  { return Requirement{Kind: KindName, Value: v} }

func TestParseLink(t *testing.T) {
	cases := []struct {
		link string
		want []Requirement
	}{
		{"", nil},
		{"-", nil},
		{"  - ", nil},
		{"特徴〔エースパイロット〕", []Requirement{trait("エースパイロット")}},
		{"[Amuro Ray]", []Requirement{trait("Amuro Ray")}},
		{"【ニュータイプ】", []Requirement{trait("ニュータイプ")}},
		{"「アムロ・レイ」", []Requirement{name("アムロ・レイ")}},
		{"『シャア・アズナブル』", []Requirement{name("シャア・アズナブル")}},
		{"「アムロ」または〔ホワイトベース隊〕", []Requirement{trait("ホワイトベース隊"), name("アムロ")}},
		{"Amuro Ray/Char Aznable", []Requirement{name("Amuro Ray"), name("Char Aznable")}},
		{" Amuro Ray ／ / Char ", []Requirement{name("Amuro Ray"), name("Char")}},
		// 有片段但内容为空：不提取，也不回退
		{"〔〕", nil},
		{"「 」/x", nil},
		// 括号不闭合：没有片段，回退到切分
		{"〔エース", []Requirement{name("〔エース")}},
	}
	for _, c := range cases {
		got := ParseLink(c.link)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("ParseLink(%q) mismatch (-want +got):\n%s", c.link, diff)
		}
	}
}

func TestTraitTags(t *testing.T) {
	assert.Equal(t, []string{"地球連邦", "ホワイトベース隊"}, TraitTags("(地球連邦)(ホワイトベース隊)"))
	assert.Equal(t, []string{"エースパイロット", "ジオン"}, TraitTags("【エースパイロット】 〔ジオン〕"))
	assert.Equal(t, []string{"Academy"}, TraitTags("（Academy）"))
	assert.Nil(t, TraitTags("no brackets here"))
	assert.Nil(t, TraitTags("【】"))
}

func TestPilotMarkerAndDisplayName(t *testing.T) {
	text := "【パイロット】「アムロ・レイ」\n【起動】カードを1枚引く。「ガンダム」"
	assert.True(t, HasPilotMarker(text))
	got, ok := PilotDisplayName(text)
	assert.True(t, ok)
	assert.Equal(t, "アムロ・レイ", got)

	// 标记之前的引号不算
	got, ok = PilotDisplayName("「前置き」【Pilot】『Char Aznable』")
	assert.True(t, ok)
	assert.Equal(t, "Char Aznable", got)

	_, ok = PilotDisplayName("【パイロット】名前なし")
	assert.False(t, ok)

	_, ok = PilotDisplayName("「アムロ」")
	assert.False(t, ok)
	assert.False(t, HasPilotMarker("【起動】何もしない"))
}

func TestAlias(t *testing.T) {
	got, ok := Alias("このカードの名称は「ガンダム」としても扱う。")
	assert.True(t, ok)
	assert.Equal(t, "ガンダム", got)

	got, ok = Alias("This card's name is also treated as 'Gundam'.")
	assert.True(t, ok)
	assert.Equal(t, "Gundam", got)

	_, ok = Alias("このカードの名称は「」としても扱う")
	assert.False(t, ok)
	_, ok = Alias("")
	assert.False(t, ok)
}
