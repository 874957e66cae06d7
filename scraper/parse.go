package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"cardbase/model"
)

// NotFoundText 详情页查无此卡时的卡名
const NotFoundText = "該当するカードが見つかりません"

// .dataTxt 的下标
const (
	idxLevel   = 0
	idxCost    = 1
	idxColor   = 2
	idxType    = 3
	idxText    = 4
	idxZone    = 5
	idxTraits  = 6
	idxLink    = 7
	idxAP      = 8
	idxHP      = 9
	idxSetName = 11
)

// Row 一行采集结果
type Row struct {
	model.Card
	SetName string
	// ImageSrc 页面上卡图的原始地址
	ImageSrc string
}

// 句号后紧跟括号注释时，中间只保留一个换行
var noteBreakRe = regexp.MustCompile(`(。)\n+([(（])`)

// ParseDetail 解析卡片详情页。body 按 contentType 或页面 meta 声明的编码解码；
// 页面没有卡名或为查无此卡页时 found 为 false
func ParseDetail(id, prefix string, body io.Reader, contentType string) (row Row, found bool, err error) {
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return row, false, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return row, false, fmt.Errorf("parse detail page: %w", err)
	}

	box := doc.Find("div.cardDetailPageContent").First()
	if box.Length() == 0 {
		box = doc.Selection
	}
	name := strings.TrimSpace(box.Find("h1.cardName").First().Text())
	if name == "" || name == NotFoundText {
		return row, false, nil
	}

	stats := box.Find(".dataTxt")
	field := func(i int) string {
		if i >= stats.Length() {
			return ""
		}
		if i == idxText {
			return textWithBreaks(stats.Eq(i))
		}
		return strings.TrimSpace(stats.Eq(i).Text())
	}

	row.Card = model.Card{
		ID:           id,
		Name:         name,
		Rarity:       strings.TrimSpace(box.Find("div.rarity").First().Text()),
		ExpansionSet: prefix,
		Level:        model.ParseStat(field(idxLevel)),
		Cost:         model.ParseStat(field(idxCost)),
		Color:        field(idxColor),
		Type:         field(idxType),
		Text:         field(idxText),
		Zone:         field(idxZone),
		Traits:       field(idxTraits),
		Link:         field(idxLink),
		AP:           model.ParseStat(field(idxAP)),
		HP:           model.ParseStat(field(idxHP)),
	}
	row.SetName = field(idxSetName)
	row.ImageSrc, _ = box.Find("div.cardImage img").First().Attr("src")
	return row, true, nil
}

// textWithBreaks 取文本，<br> 转换为换行
func textWithBreaks(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return noteBreakRe.ReplaceAllString(strings.TrimSpace(b.String()), "$1\n$2")
}

// ImageURL 去掉 "../" 和查询串后拼接到卡图根地址
func ImageURL(base, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	src, _, _ = strings.Cut(src, "?")
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	src = strings.TrimLeft(strings.ReplaceAll(src, "../", ""), "/")
	return strings.TrimSuffix(base, "/") + "/" + src
}
