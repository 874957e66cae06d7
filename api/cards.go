package api

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardbase/model"
	"cardbase/service"
	"cardbase/store"
)

// cardView 返回给前端的卡片，附带数值显示和卡图地址
type cardView struct {
	model.Card
	Labels service.StatLabels `json:"labels"`
	Image  string             `json:"image"`
}

func (h *Handler) view(card model.Card) cardView {
	return cardView{
		Card:   card,
		Labels: service.Labels(card),
		Image:  service.ImagePath(h.images.URLPrefix, card),
	}
}

func (h *Handler) views(cards []model.Card) []cardView {
	out := make([]cardView, 0, len(cards))
	for _, card := range cards {
		out = append(out, h.view(card))
	}
	return out
}

// 查询参数名到筛选维度
var facetParams = []struct {
	param string
	facet model.Facet
}{
	{"colors", model.FacetColors},
	{"types", model.FacetTypes},
	{"costs", model.FacetCosts},
	{"levels", model.FacetLevels},
	{"aps", model.FacetAPs},
	{"hps", model.FacetHPs},
	{"rarities", model.FacetRarities},
	{"sets", model.FacetExpansionSets},
	{"zones", model.FacetZones},
}

// parseFilters 从查询串解析筛选状态，同时接受 colors[]=a 和 colors=a 两种写法
func parseFilters(c *gin.Context) (model.FilterState, error) {
	f := model.DefaultFilterState().
		WithText(c.Query("search")).
		WithSort(c.DefaultQuery("sort", model.SortID), c.DefaultQuery("order", model.OrderAsc))

	for _, p := range facetParams {
		values := append(c.QueryArray(p.param+"[]"), c.QueryArray(p.param)...)
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if !containsOption(f, p.facet, v) {
				f = f.Toggle(p.facet, v)
			}
		}
	}

	var bounds [4]*int
	for i, name := range []string{"ap_min", "ap_max", "hp_min", "hp_max"} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, fmt.Errorf("参数 %s 必须是整数", name)
		}
		bounds[i] = &n
	}
	return f.WithRange(bounds[0], bounds[1], bounds[2], bounds[3]), nil
}

func containsOption(f model.FilterState, facet model.Facet, v string) bool {
	v = model.NormalizeOption(facet, v)
	for _, cur := range f.Values(facet) {
		if cur == v {
			return true
		}
	}
	return false
}

// bindFilters GET读查询串，POST读JSON请求体
func bindFilters(c *gin.Context) (model.FilterState, error) {
	if c.Request.Method != http.MethodPost {
		return parseFilters(c)
	}
	f := model.DefaultFilterState()
	if err := c.ShouldBindJSON(&f); err != nil {
		return f, fmt.Errorf("无效的请求参数: %w", err)
	}
	return f, nil
}

// QueryCards 筛选、排序卡片
func (h *Handler) QueryCards(c *gin.Context) {
	filters, err := bindFilters(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.catalog.Query(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{
		"total":    len(res.Cards),
		"revision": res.Revision,
		"stale":    res.Stale,
		"cards":    h.views(res.Cards),
	})
}

// Facets 可选的收录弹和稀有度
func (h *Handler) Facets(c *gin.Context) {
	facets, err := h.catalog.Facets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, facets)
}

// Suggest 卡名模糊补全
func (h *Handler) Suggest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	cards, err := h.catalog.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, h.views(cards))
}

// GetCard 卡片详情。带筛选参数时同时返回当前结果中的上一张/下一张
func (h *Handler) GetCard(c *gin.Context) {
	ctx := c.Request.Context()
	card, err := h.catalog.Card(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	filters, err := parseFilters(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.catalog.Query(ctx, filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	prev, next := service.Neighbors(res.Cards, card.ID)
	ok(c, gin.H{
		"card": h.view(card),
		"prev": prev,
		"next": next,
	})
}

// CardLinks 驾驶员找单位卡，单位卡找驾驶员
func (h *Handler) CardLinks(c *gin.Context) {
	res, err := h.catalog.Links(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{
		"card":      h.view(res.Card),
		"direction": res.Direction,
		"linked":    h.views(res.Linked),
	})
}

// cardForm 登记卡片的表单
type cardForm struct {
	ID            string `form:"id" json:"id"`
	Name          string `form:"name" json:"name"`
	Rarity        string `form:"rarity" json:"rarity"`
	ExpansionSet  string `form:"expansion_set" json:"expansion_set"`
	Level         int    `form:"level" json:"level"`
	Cost          int    `form:"cost" json:"cost"`
	Color         string `form:"color" json:"color"`
	Type          string `form:"type" json:"type"`
	Text          string `form:"text" json:"text"`
	Zone          string `form:"zone" json:"zone"`
	Traits        string `form:"traits" json:"traits"`
	Link          string `form:"link" json:"link"`
	AP            int    `form:"ap" json:"ap"`
	HP            int    `form:"hp" json:"hp"`
	ExistingImage string `form:"existing_image" json:"existing_image"`
}

func (f cardForm) card() model.Card {
	return model.Card{
		ID:           store.NormalizeID(f.ID),
		Name:         strings.TrimSpace(f.Name),
		Rarity:       f.Rarity,
		ExpansionSet: f.ExpansionSet,
		Level:        f.Level,
		Cost:         f.Cost,
		Color:        f.Color,
		Type:         f.Type,
		Text:         f.Text,
		Zone:         f.Zone,
		Traits:       f.Traits,
		Link:         f.Link,
		AP:           f.AP,
		HP:           f.HP,
	}
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}

// SaveCard 新建或覆盖一张卡片，可同时上传卡图
func (h *Handler) SaveCard(c *gin.Context) {
	if h.images.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.images.MaxUploadBytes)
	}

	var form cardForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "无效的请求参数: "+err.Error())
		return
	}
	card := form.card()
	if !store.ValidID(card.ID) || card.Name == "" {
		badRequest(c, store.ErrInvalidCard.Error())
		return
	}

	if file, err := c.FormFile("image"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !imageExts[ext] {
			badRequest(c, "不支持的图片格式: "+ext)
			return
		}
		name := filepath.Base(card.ID) + ext
		if err := c.SaveUploadedFile(file, filepath.Join(h.images.Dir, name)); err != nil {
			h.fail(c, fmt.Errorf("save image %s: %w", name, err))
			return
		}
		card.ImageURL = name
		h.logger.Info("card image saved", zap.String("id", card.ID), zap.String("file", name), zap.Int64("size", file.Size))
	} else if form.ExistingImage != "" {
		card.ImageURL = path.Base(form.ExistingImage)
	}

	if err := h.catalog.SaveCards(c.Request.Context(), []model.Card{card}); err != nil {
		h.fail(c, err)
		return
	}
	// 返回刷新后快照中的卡片，带上写入时间
	if saved, err := h.catalog.Card(c.Request.Context(), card.ID); err == nil {
		card = saved
	}
	ok(c, h.view(card))
}

// DeleteCard 删除卡片，被卡组引用时返回409
func (h *Handler) DeleteCard(c *gin.Context) {
	id := store.NormalizeID(c.Param("id"))
	if err := h.catalog.DeleteCard(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"id": id})
}

type renameRequest struct {
	OldID string `json:"old_id" binding:"required"`
	NewID string `json:"new_id" binding:"required"`
}

// RenameCard 修改卡片ID并同步卡组
func (h *Handler) RenameCard(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求参数: "+err.Error())
		return
	}
	oldID, newID := store.NormalizeID(req.OldID), store.NormalizeID(req.NewID)
	if oldID == newID {
		badRequest(c, "新旧ID相同")
		return
	}
	if !store.ValidID(newID) {
		badRequest(c, store.ErrInvalidCard.Error())
		return
	}
	decks, err := h.catalog.RenameCard(c.Request.Context(), oldID, newID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"old_id": oldID, "new_id": newID, "decks_updated": decks})
}
