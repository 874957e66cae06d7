package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cardbase/config"
	"cardbase/model"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrCardExists   = errors.New("card already exists")
	ErrInvalidCard  = errors.New("id must look like ST01-001 and name is required")
	ErrDeckNotFound = errors.New("deck not found")
	ErrInvalidDeck  = errors.New("title and cards are required")
)

// CardInUseError 卡片被卡组引用，不能删除
type CardInUseError struct {
	ID    string
	Decks []string
}

func (e *CardInUseError) Error() string {
	return fmt.Sprintf("card %s is used in decks: %s", e.ID, strings.Join(e.Decks, ", "))
}

// Store 卡片和卡组的持久化
type Store struct {
	db *gorm.DB
}

// New 使用已有连接
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open 按配置连接数据库
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return New(db), nil
}

// Migrate 自动迁移
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&model.Card{}, &model.Deck{}); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Close 关闭连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查连接
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) isMySQL() bool {
	return s.db.Dialector.Name() == "mysql"
}

// deckKeyPattern LIKE 模式，匹配 JSON 中作为键出现的卡片ID
func deckKeyPattern(id string) string {
	return `%"` + escapeLike(id) + `":%`
}

// likeEscape LIKE 的转义字符。不用反斜杠，MySQL 和 SQLite 对字符串字面量里的反斜杠处理不同
const likeEscape = "!"

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}
