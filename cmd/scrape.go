package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardbase/config"
	"cardbase/model"
	"cardbase/scraper"
	"cardbase/store"
)

var (
	scrapeOutput string
	scrapeUpsert bool
	scrapeSets   []string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--output cards.csv] [--upsert] [--set ST01 ...]",
	Short: "从官网采集卡片数据，写成CSV，可直接写入数据库",
	RunE: func(cmd *cobra.Command, args []string) error {
		return scrape(cmd.Context())
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "CSV输出路径 (默认使用配置 scraper.output_csv)")
	scrapeCmd.Flags().BoolVar(&scrapeUpsert, "upsert", false, "同时写入数据库")
	scrapeCmd.Flags().StringSliceVar(&scrapeSets, "set", nil, "只采集指定的收录弹前缀")
	rootCmd.AddCommand(scrapeCmd)
}

func scrape(ctx context.Context) error {
	cfg := config.AppConfig
	scfg := cfg.Scraper
	if len(scrapeSets) > 0 {
		scfg.Sets = filterSets(scfg.Sets, scrapeSets)
		if len(scfg.Sets) == 0 {
			return fmt.Errorf("配置中没有收录弹 %v", scrapeSets)
		}
	}

	output := scrapeOutput
	if output == "" {
		output = scfg.OutputCSV
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("创建CSV失败: %w", err)
	}
	defer f.Close()

	w, err := scraper.NewCSVWriter(f)
	if err != nil {
		return err
	}

	var st *store.Store
	if scrapeUpsert {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	var scraped []model.Card
	stats, runErr := scraper.New(scfg, cfg.Images.Dir, log).Run(ctx, func(row scraper.Row) error {
		if st != nil {
			scraped = append(scraped, row.Card)
		}
		return w.Write(row)
	})
	if err := w.Flush(); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}

	// 中断时已采集的部分仍然写入
	if st != nil && len(scraped) > 0 {
		if err := st.UpsertCards(context.WithoutCancel(ctx), scraped); err != nil {
			return fmt.Errorf("写入数据库失败: %w", err)
		}
	}

	log.Info("scrape finished",
		zap.String("output", output),
		zap.Int("fetched", stats.Fetched),
		zap.Int("missed", stats.Missed),
		zap.Int("images", stats.Images),
		zap.Int("image_errors", stats.ImageErrors),
		zap.Bool("upsert", st != nil))
	return runErr
}

func filterSets(sets []config.ScrapeSet, prefixes []string) []config.ScrapeSet {
	want := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		want[store.NormalizeID(p)] = true
	}
	var out []config.ScrapeSet
	for _, s := range sets {
		if want[store.NormalizeID(s.Prefix)] {
			out = append(out, s)
		}
	}
	return out
}
