package api

import (
	"github.com/gin-gonic/gin"

	"cardbase/model"
)

// ListDecks 卡组列表
func (h *Handler) ListDecks(c *gin.Context) {
	decks, err := h.decks.ListDecks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if decks == nil {
		decks = []model.DeckSummary{}
	}
	ok(c, decks)
}

// GetDeck 卡组详情
func (h *Handler) GetDeck(c *gin.Context) {
	deck, err := h.decks.GetDeck(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"deck": deck, "total": deck.Cards.Total()})
}

// deckRequest 保存卡组的请求体，id 为空时新建
type deckRequest struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Cards       model.DeckCards `json:"cards"`
	ThumbnailID *string         `json:"thumbnail_id"`
}

// SaveDeck 新建或更新卡组
func (h *Handler) SaveDeck(c *gin.Context) {
	var req deckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求参数: "+err.Error())
		return
	}
	id, created, err := h.decks.SaveDeck(c.Request.Context(), model.Deck{
		ID:          req.ID,
		Title:       req.Title,
		Cards:       req.Cards,
		ThumbnailID: req.ThumbnailID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"id": id, "created": created})
}

// DeleteDeck 删除卡组
func (h *Handler) DeleteDeck(c *gin.Context) {
	id := c.Param("id")
	if err := h.decks.DeleteDeck(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"id": id})
}
