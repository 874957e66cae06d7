package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"cardbase/model"
	"cardbase/scraper"
	"cardbase/store"
)

// MinColumns 少于这个列数的行被跳过
const MinColumns = 15

// progressEvery 每处理这么多行记录一次进度
const progressEvery = 50

// Upserter 批量写入卡片，要求在一个事务内完成
type Upserter interface {
	UpsertCards(ctx context.Context, cards []model.Card) error
}

// Result 导入统计
type Result struct {
	Rows     int
	Imported int
	Skipped  int
}

// Importer CSV 导入
type Importer struct {
	store  Upserter
	logger *zap.Logger
}

// New 创建导入器
func New(up Upserter, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.L()
	}
	return &Importer{store: up, logger: logger.Named("importer")}
}

// ImportFile 导入采集生成的 CSV 文件
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import 解析全部行后在一个事务中写入，任何一行写入失败都整体回滚
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	start := time.Now()
	cards, res, err := im.Read(r)
	if err != nil {
		return res, err
	}
	if len(cards) == 0 {
		im.logger.Warn("no rows to import", zap.Int("skipped", res.Skipped))
		return res, nil
	}
	if err := im.store.UpsertCards(ctx, cards); err != nil {
		return res, fmt.Errorf("upsert cards: %w", err)
	}
	res.Imported = len(cards)
	im.logger.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Read 解析 CSV：去掉 BOM，跳过表头和列数不足的行，非 UTF-8 字段按 Shift-JIS 解码
func (im *Importer) Read(r io.Reader) ([]model.Card, Result, error) {
	var res Result
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(scraper.BOM)); err == nil && bytes.Equal(head, []byte(scraper.BOM)) {
		_, _ = br.Discard(len(scraper.BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var cards []model.Card
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, res, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++
		if line == 1 {
			continue
		}
		res.Rows++
		if len(record) < MinColumns {
			res.Skipped++
			im.logger.Debug("skipping short row", zap.Int("line", line), zap.Int("columns", len(record)))
			continue
		}
		card, err := rowToCard(record)
		if err != nil {
			return nil, res, fmt.Errorf("line %d: %w", line, err)
		}
		if !store.ValidID(card.ID) || card.Name == "" {
			res.Skipped++
			im.logger.Debug("skipping row without valid id or name", zap.Int("line", line), zap.String("id", card.ID))
			continue
		}
		cards = append(cards, card)
		if res.Rows%progressEvery == 0 {
			im.logger.Info("import progress", zap.Int("rows", res.Rows), zap.String("last_id", card.ID))
		}
	}
	return cards, res, nil
}

func rowToCard(record []string) (model.Card, error) {
	fields := make([]string, len(scraper.Header))
	for i := range fields {
		if i >= len(record) {
			break
		}
		v, err := decodeField(record[i])
		if err != nil {
			return model.Card{}, fmt.Errorf("column %s: %w", scraper.Header[i], err)
		}
		fields[i] = strings.TrimSpace(v)
	}
	return model.Card{
		ID:           store.NormalizeID(fields[0]),
		Name:         fields[1],
		Rarity:       fields[2],
		ExpansionSet: fields[3],
		Level:        model.ParseStat(fields[4]),
		Cost:         model.ParseStat(fields[5]),
		Color:        fields[6],
		Type:         fields[7],
		Text:         fields[8],
		Zone:         fields[9],
		Traits:       fields[10],
		Link:         fields[11],
		AP:           model.ParseStat(fields[12]),
		HP:           model.ParseStat(fields[13]),
		ImageURL:     fields[15],
	}, nil
}

// decodeField 表格软件另存的文件可能是 Shift-JIS
func decodeField(s string) (string, error) {
	if utf8.ValidString(s) {
		return s, nil
	}
	return japanese.ShiftJIS.NewDecoder().String(s)
}
