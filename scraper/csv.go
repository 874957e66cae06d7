package scraper

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// Header CSV 列名，导入时按同样的顺序读取
var Header = []string{
	"id", "name", "rarity", "expansion_set",
	"level", "cost", "color", "type",
	"text", "zone", "traits", "link",
	"ap", "hp", "set_name", "image_url",
}

// BOM 让表格软件按 UTF-8 打开
const BOM = "\xEF\xBB\xBF"

// CSVWriter 采集结果写成 CSV
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter 写入 BOM 和表头
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	if _, err := io.WriteString(w, BOM); err != nil {
		return nil, err
	}
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(Header); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write 写入一行
func (cw *CSVWriter) Write(row Row) error {
	c := row.Card
	return cw.w.Write([]string{
		c.ID, c.Name, c.Rarity, c.ExpansionSet,
		stat(c.Level), stat(c.Cost), c.Color, c.Type,
		c.Text, c.Zone, c.Traits, c.Link,
		stat(c.AP), stat(c.HP), strings.TrimSpace(row.SetName), c.ImageURL,
	})
}

// Flush 刷新缓冲并返回写入错误
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

func stat(v int) string {
	return strconv.Itoa(v)
}
