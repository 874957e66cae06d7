package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardbase/config"
	"cardbase/model"
	"cardbase/service"
	"cardbase/store"
	"cardbase/util/warp"
)

// DeckStore 卡组和备份的持久化接口，由 *store.Store 实现
type DeckStore interface {
	ListDecks(ctx context.Context) ([]model.DeckSummary, error)
	GetDeck(ctx context.Context, id string) (model.Deck, error)
	SaveDeck(ctx context.Context, deck model.Deck) (string, bool, error)
	DeleteDeck(ctx context.Context, id string) error
	Export(ctx context.Context) (model.Backup, error)
	Import(ctx context.Context, backup model.Backup) error
	Ping() error
}

// Handler HTTP处理器
type Handler struct {
	catalog *service.CatalogService
	decks   DeckStore
	images  config.ImageConfig
	logger  *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(catalog *service.CatalogService, decks DeckStore, images config.ImageConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{
		catalog: catalog,
		decks:   decks,
		images:  images,
		logger:  logger.Named("api"),
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": message,
	})
}

// fail 按错误类型映射状态码，5xx 带调用栈记录日志
func (h *Handler) fail(c *gin.Context, err error) {
	var inUse *store.CardInUseError
	switch {
	case errors.As(err, &inUse):
		c.JSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": "卡片正在被卡组使用",
			"data":    gin.H{"id": inUse.ID, "decks": inUse.Decks},
		})
		return
	case errors.Is(err, store.ErrCardNotFound), errors.Is(err, store.ErrDeckNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error()})
		return
	case errors.Is(err, store.ErrInvalidCard), errors.Is(err, store.ErrInvalidDeck):
		badRequest(c, err.Error())
		return
	case errors.Is(err, store.ErrCardExists):
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
		return
	}

	err = warp.Wrap(err)
	h.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
		zap.String("stack", warp.StackTraceOf(err)))
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    http.StatusInternalServerError,
		"message": "服务器内部错误",
	})
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	response := gin.H{"status": "ok", "database": "ok"}
	if err := h.decks.Ping(); err != nil {
		response["status"] = "degraded"
		response["database"] = err.Error()
	}
	if snap, err := h.catalog.Snapshot(c.Request.Context()); err == nil {
		response["cards"] = len(snap.Cards)
		response["revision"] = snap.Revision
		response["loaded_at"] = snap.LoadedAt
	}
	c.JSON(http.StatusOK, response)
}
