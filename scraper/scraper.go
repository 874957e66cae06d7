package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"cardbase/config"
)

// Stats 一次采集的统计
type Stats struct {
	Fetched int
	Missed  int
	Images  int
	// ImageErrors 卡图下载失败的张数，对应行的 image_url 为空
	ImageErrors int
}

// Scraper 官网卡片详情页采集
type Scraper struct {
	client   *resty.Client
	cfg      config.ScraperConfig
	imageDir string
	logger   *zap.Logger
}

// New 创建采集器。resty 默认带 cookie jar，会话内的 cookie 会被保留
func New(cfg config.ScraperConfig, imageDir string, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.L()
	}
	if cfg.MissLimit <= 0 {
		cfg.MissLimit = 3
	}
	client := resty.New().
		SetTimeout(cfg.Timeout.Std()).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "ja,en-US;q=0.9,en;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &Scraper{
		client:   client,
		cfg:      cfg,
		imageDir: imageDir,
		logger:   logger.Named("scraper"),
	}
}

// CardID 收录弹前缀加三位序号，如 ST01-001
func CardID(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// Run 依次采集配置中的每个收录弹，每张命中的卡交给 handle。
// 连续 MissLimit 次未命中时跳到下一个收录弹
func (s *Scraper) Run(ctx context.Context, handle func(Row) error) (Stats, error) {
	var stats Stats
	if s.imageDir != "" {
		if err := os.MkdirAll(s.imageDir, 0755); err != nil {
			return stats, fmt.Errorf("create image dir: %w", err)
		}
	}

	for _, set := range s.cfg.Sets {
		s.logger.Info("scraping set", zap.String("prefix", set.Prefix), zap.Int("max", set.Count))
		misses := 0
		for i := 1; i <= set.Count; i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			id := CardID(set.Prefix, i)

			row, found, err := s.FetchCard(ctx, set.Prefix, id)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				s.logger.Warn("fetch card failed", zap.String("id", id), zap.Error(err))
			}
			if !found {
				misses++
				stats.Missed++
				s.logger.Debug("card not found", zap.String("id", id), zap.Int("misses", misses))
				if misses >= s.cfg.MissLimit {
					s.logger.Info("too many misses, moving to next set", zap.String("prefix", set.Prefix), zap.String("last_id", id))
					break
				}
				continue
			}
			misses = 0

			if row.ImageSrc != "" {
				name, downloaded, err := s.saveImage(ctx, id, row.ImageSrc)
				switch {
				case err != nil:
					stats.ImageErrors++
					s.logger.Warn("image download failed", zap.String("id", id), zap.Error(err))
				default:
					row.ImageURL = name
					if downloaded {
						stats.Images++
					}
				}
			}

			if err := handle(row); err != nil {
				return stats, fmt.Errorf("handle %s: %w", id, err)
			}
			stats.Fetched++
			s.logger.Info("card scraped", zap.String("id", id), zap.String("name", row.Name))

			if err := sleep(ctx, s.cfg.Delay.Std()); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

// FetchCard 请求并解析一张卡的详情页
func (s *Scraper) FetchCard(ctx context.Context, prefix, id string) (Row, bool, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Referer", s.cfg.Referer).
		Get(s.cfg.DetailURL + id)
	if err != nil {
		return Row{}, false, err
	}
	if res.IsError() {
		return Row{}, false, fmt.Errorf("detail page %s: %s", id, res.Status())
	}
	return ParseDetail(id, prefix, bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
}

// saveImage 卡图保存为 <ID><扩展名>，文件已存在时不重复下载
func (s *Scraper) saveImage(ctx context.Context, id, src string) (string, bool, error) {
	if s.imageDir == "" {
		return "", false, errors.New("image dir not configured")
	}
	url := ImageURL(s.cfg.ImageBase, src)
	ext := strings.ToLower(path.Ext(url))
	if ext == "" {
		ext = ".webp"
	}
	name := id + ext
	dst := filepath.Join(s.imageDir, name)
	if _, err := os.Stat(dst); err == nil {
		return name, false, nil
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Referer", s.cfg.DetailURL+id).
		Get(url)
	if err != nil {
		return "", false, err
	}
	if res.IsError() || len(res.Body()) == 0 {
		return "", false, fmt.Errorf("image %s: %s", url, res.Status())
	}
	if ct := http.DetectContentType(res.Body()); !strings.HasPrefix(ct, "image/") {
		return "", false, fmt.Errorf("image %s: unexpected content %s", url, ct)
	}

	tmp := dst + ".part"
	if err := os.WriteFile(tmp, res.Body(), 0644); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", false, err
	}
	return name, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
