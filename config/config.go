package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 应用配置
type Config struct {
	Port        string   `toml:"port"`
	RunMode     string   `toml:"run_mode"`
	LogLevel    string   `toml:"log_level"`
	CORSOrigins []string `toml:"cors_origins"`

	// 链接解析结果缓存条目数
	LinkCacheSize int `toml:"link_cache_size"`
	// serve 定时重新加载目录快照的间隔，0 表示不定时刷新
	CatalogRefresh Duration `toml:"catalog_refresh"`

	Database DatabaseConfig `toml:"database"`
	Images   ImageConfig    `toml:"images"`
	Scraper  ScraperConfig  `toml:"scraper"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `toml:"driver"` // mysql | sqlite
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Name         string `toml:"name"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SQLitePath   string `toml:"sqlite_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DSN 返回MySQL连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// ImageConfig 卡图存储配置
type ImageConfig struct {
	Dir            string `toml:"dir"`
	URLPrefix      string `toml:"url_prefix"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// ScrapeSet 一个收录弹的抓取范围
type ScrapeSet struct {
	Prefix string `toml:"prefix"`
	Count  int    `toml:"count"`
}

// ScraperConfig 采集配置
type ScraperConfig struct {
	DetailURL string      `toml:"detail_url"`
	ImageBase string      `toml:"image_base"`
	Referer   string      `toml:"referer"`
	UserAgent string      `toml:"user_agent"`
	Delay     Duration    `toml:"delay"`
	Timeout   Duration    `toml:"timeout"`
	MissLimit int         `toml:"miss_limit"`
	OutputCSV string      `toml:"output_csv"`
	Sets      []ScrapeSet `toml:"sets"`
}

// Duration 支持在TOML中写成 "300ms" 这样的字符串
type Duration time.Duration

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText 实现 encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std 返回 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig 全局配置实例
var AppConfig *Config

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Port:           "8888",
		RunMode:        "release",
		LogLevel:       "info",
		CORSOrigins:    []string{"*"},
		LinkCacheSize:  512,
		CatalogRefresh: Duration(5 * time.Minute),
		Database: DatabaseConfig{
			Driver:       "mysql",
			Host:         "localhost",
			Port:         3306,
			Name:         "gcg_app",
			User:         "gcg_user",
			SQLitePath:   "./cache/cardbase.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Images: ImageConfig{
			Dir:            "./images",
			URLPrefix:      "/images/",
			MaxUploadBytes: 10 << 20,
		},
		Scraper: ScraperConfig{
			DetailURL: "https://www.gundam-gcg.com/jp/cards/detail.php?detailSearch=",
			ImageBase: "https://www.gundam-gcg.com/jp/",
			Referer:   "https://www.gundam-gcg.com/",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Delay:     Duration(300 * time.Millisecond),
			Timeout:   Duration(30 * time.Second),
			MissLimit: 3,
			OutputCSV: "./cards.csv",
			Sets:      defaultSets(),
		},
	}
}

func defaultSets() []ScrapeSet {
	sets := make([]ScrapeSet, 0, 16)
	for i := 1; i <= 10; i++ {
		sets = append(sets, ScrapeSet{Prefix: fmt.Sprintf("ST%02d", i), Count: 20})
	}
	for i := 1; i <= 5; i++ {
		sets = append(sets, ScrapeSet{Prefix: fmt.Sprintf("GD%02d", i), Count: 150})
	}
	return append(sets, ScrapeSet{Prefix: "T", Count: 50})
}

// Init 初始化配置：默认值 -> TOML文件 -> 环境变量
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load 读取配置，文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CARDBASE_CONFIG")
	}
	if path == "" {
		path = "./cardbase.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// 数组表会追加到已有切片，先清空默认收录弹
		cfg.Scraper.Sets = nil
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
		if len(cfg.Scraper.Sets) == 0 {
			cfg.Scraper.Sets = defaultSets()
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.RunMode, "RUN_MODE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setInt(&cfg.LinkCacheSize, "LINK_CACHE_SIZE")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.SQLitePath, "DB_SQLITE_PATH")

	setString(&cfg.Images.Dir, "IMAGE_DIR")
	setString(&cfg.Scraper.OutputCSV, "SCRAPER_OUTPUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
