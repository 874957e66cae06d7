package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"cardbase/model"
	"cardbase/store"
	"cardbase/util/natsort"
)

// CardStore 目录服务依赖的持久化接口，由 *store.Store 实现
type CardStore interface {
	ListCards(ctx context.Context, f *model.FilterState) ([]model.Card, error)
	UpsertCards(ctx context.Context, cards []model.Card) error
	DeleteCard(ctx context.Context, id string) error
	RenameCard(ctx context.Context, oldID, newID string) (int, error)
}

// Snapshot 某一时刻的完整目录，按ID自然序排列，创建后不再修改
type Snapshot struct {
	Revision uint64
	LoadedAt time.Time
	Cards    []model.Card
	index    map[string]int
}

func newSnapshot(rev uint64, cards []model.Card) *Snapshot {
	sorted := slices.Clone(cards)
	SortCards(sorted, model.SortID, model.OrderAsc)
	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		index[c.ID] = i
	}
	return &Snapshot{Revision: rev, LoadedAt: time.Now(), Cards: sorted, index: index}
}

// Card 按ID查找
func (s *Snapshot) Card(id string) (model.Card, bool) {
	i, ok := s.index[store.NormalizeID(id)]
	if !ok {
		return model.Card{}, false
	}
	return s.Cards[i], true
}

// QueryResult 查询结果
type QueryResult struct {
	Cards    []model.Card
	Revision uint64
	// Stale 数据库查询失败，结果来自上一次成功加载的快照
	Stale bool
}

// LinkResult 链接解析结果
type LinkResult struct {
	Card model.Card
	// Direction "pilots"：单位卡找驾驶员；"units"：驾驶员找单位卡；其他类型为空
	Direction string
	Linked    []model.Card
}

// CatalogService 目录快照、查询、链接解析
type CatalogService struct {
	store    CardStore
	imageDir string
	logger   *zap.Logger

	mu      sync.RWMutex
	snap    *Snapshot
	applied uint64

	started atomic.Uint64
	links   *lru.Cache
}

// NewCatalogService 创建目录服务
func NewCatalogService(cs CardStore, imageDir string, cacheSize int, logger *zap.Logger) (*CatalogService, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create link cache: %w", err)
	}
	if logger == nil {
		logger = zap.L()
	}
	return &CatalogService{
		store:    cs,
		imageDir: imageDir,
		logger:   logger.Named("catalog"),
		links:    cache,
	}, nil
}

// Refresh 重新加载快照。加载完成时已有更晚开始的刷新，本次结果被丢弃
// （尚无任何快照时除外）；失败时保留上一次成功的快照
func (s *CatalogService) Refresh(ctx context.Context) error {
	seq := s.started.Add(1)
	cards, err := s.store.ListCards(ctx, nil)
	if err != nil {
		s.logger.Warn("catalog refresh failed, keeping last snapshot", zap.Uint64("seq", seq), zap.Error(err))
		return fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if latest := s.started.Load(); seq < latest && s.snap != nil {
		s.logger.Debug("discarding stale catalog refresh", zap.Uint64("seq", seq), zap.Uint64("latest", latest))
		return nil
	}
	if seq < s.applied {
		return nil
	}
	s.applied = seq
	s.snap = newSnapshot(seq, cards)
	s.links.Purge()
	s.logger.Info("catalog loaded", zap.Uint64("revision", seq), zap.Int("cards", len(cards)))
	return nil
}

// Snapshot 当前快照，尚未加载时先加载一次
func (s *CatalogService) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

func (s *CatalogService) current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Query 数据库预筛选后，由 ComputeVisibleCards 给出最终结果
func (s *CatalogService) Query(ctx context.Context, filters model.FilterState) (QueryResult, error) {
	filters = filters.Normalized()
	rows, err := s.store.ListCards(ctx, &filters)
	if err != nil {
		snap := s.current()
		if snap == nil {
			return QueryResult{}, fmt.Errorf("query cards: %w", err)
		}
		s.logger.Warn("card query failed, serving last snapshot", zap.Uint64("revision", snap.Revision), zap.Error(err))
		return QueryResult{Cards: ComputeVisibleCards(snap.Cards, filters), Revision: snap.Revision, Stale: true}, nil
	}

	var rev uint64
	if snap := s.current(); snap != nil {
		rev = snap.Revision
	}
	return QueryResult{Cards: ComputeVisibleCards(rows, filters), Revision: rev}, nil
}

// Card 从快照中取一张卡
func (s *CatalogService) Card(ctx context.Context, id string) (model.Card, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Card{}, err
	}
	card, ok := snap.Card(id)
	if !ok {
		return model.Card{}, store.ErrCardNotFound
	}
	return card, nil
}

// Links 在完整快照上解析某张卡的链接关系
func (s *CatalogService) Links(ctx context.Context, id string) (LinkResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return LinkResult{}, err
	}
	card, ok := snap.Card(id)
	if !ok {
		return LinkResult{}, store.ErrCardNotFound
	}

	key := fmt.Sprintf("%d:%s", snap.Revision, card.ID)
	if v, ok := s.links.Get(key); ok {
		return v.(LinkResult), nil
	}

	result := LinkResult{Card: card, Linked: make([]model.Card, 0)}
	switch {
	case IsPilot(card):
		result.Direction = "units"
		result.Linked = FindLinkedUnits(card, snap.Cards)
	case IsUnit(card):
		result.Direction = "pilots"
		result.Linked = FindLinkedPilots(card, snap.Cards)
	}
	s.links.Add(key, result)
	return result, nil
}

// Facets 快照中实际出现的收录弹和稀有度
type Facets struct {
	ExpansionSets []string `json:"expansion_sets"`
	Rarities      []string `json:"rarities"`
}

// Facets 统计可选的收录弹和稀有度
func (s *CatalogService) Facets(ctx context.Context) (Facets, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Facets{}, err
	}
	sets := map[string]struct{}{}
	rarities := map[string]struct{}{}
	for _, c := range snap.Cards {
		if c.ExpansionSet != "" {
			sets[c.ExpansionSet] = struct{}{}
		}
		if c.Rarity != "" {
			rarities[c.Rarity] = struct{}{}
		}
	}
	out := Facets{ExpansionSets: keys(sets), Rarities: keys(rarities)}
	slices.SortFunc(out.ExpansionSets, natsort.Compare)
	slices.Sort(out.Rarities)
	return out, nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// suggestSource 实现 fuzzy.Source，匹配前统一转小写
type suggestSource []model.Card

func (s suggestSource) String(i int) string { return strings.ToLower(s[i].ID + " " + s[i].Name) }
func (s suggestSource) Len() int            { return len(s) }

// Suggest 按卡名/ID模糊匹配，返回相关度最高的若干张
func (s *CatalogService) Suggest(ctx context.Context, query string, limit int) ([]model.Card, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Card, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	for _, m := range fuzzy.FindFrom(strings.ToLower(query), suggestSource(snap.Cards)) {
		out = append(out, snap.Cards[m.Index])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// SaveCards 写入卡片并刷新快照
func (s *CatalogService) SaveCards(ctx context.Context, cards []model.Card) error {
	if err := s.store.UpsertCards(ctx, cards); err != nil {
		return err
	}
	return s.refreshAfterWrite(ctx)
}

// DeleteCard 删除卡片并刷新快照。卡图保留，以便重新登记
func (s *CatalogService) DeleteCard(ctx context.Context, id string) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return err
	}
	return s.refreshAfterWrite(ctx)
}

// RenameCard 修改卡片ID，改写卡组引用，并把 <旧ID>.<扩展名> 的卡图改名
func (s *CatalogService) RenameCard(ctx context.Context, oldID, newID string) (int, error) {
	oldID, newID = store.NormalizeID(oldID), store.NormalizeID(newID)
	decks, err := s.store.RenameCard(ctx, oldID, newID)
	if err != nil {
		return 0, err
	}
	if err := s.renameImages(oldID, newID); err != nil {
		s.logger.Warn("rename card image failed", zap.String("old_id", oldID), zap.String("new_id", newID), zap.Error(err))
	}
	return decks, s.refreshAfterWrite(ctx)
}

func (s *CatalogService) renameImages(oldID, newID string) error {
	if s.imageDir == "" {
		return nil
	}
	if !store.ValidID(oldID) || !store.ValidID(newID) {
		return fmt.Errorf("%w: %q -> %q", store.ErrInvalidCard, oldID, newID)
	}
	matches, err := filepath.Glob(filepath.Join(s.imageDir, filepath.Base(oldID)+".*"))
	if err != nil {
		return err
	}
	var errs []error
	for _, src := range matches {
		dst := filepath.Join(s.imageDir, filepath.Base(newID)+filepath.Ext(src))
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// refreshAfterWrite 写入已经成功，刷新失败只记录日志
func (s *CatalogService) refreshAfterWrite(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after write failed", zap.Error(err))
	}
	return nil
}
