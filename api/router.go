package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cardbase/config"
)

// SetupRouter 设置路由
func SetupRouter(h *Handler, cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.RunMode)

	engine := gin.New()
	if cfg.RunMode != gin.ReleaseMode {
		engine.Use(gin.Logger())
	}
	engine.Use(RecoveryMiddleware(h.logger))
	engine.Use(CORSMiddleware(cfg.CORSOrigins))

	// 卡图静态文件
	if cfg.Images.Dir != "" {
		prefix := "/" + strings.Trim(cfg.Images.URLPrefix, "/")
		if prefix == "/" {
			prefix = "/images"
		}
		engine.Static(prefix, cfg.Images.Dir)
	}

	api := engine.Group("/api")
	{
		api.GET("/health", h.Health)

		cards := api.Group("/cards")
		{
			// 查询接口支持GET和POST两种方式
			cards.GET("", h.QueryCards)
			cards.POST("/query", h.QueryCards)
			cards.GET("/facets", h.Facets)
			cards.GET("/suggest", h.Suggest)
			cards.POST("", h.SaveCard)
			cards.POST("/rename", h.RenameCard)
			cards.GET("/:id", h.GetCard)
			cards.GET("/:id/links", h.CardLinks)
			cards.DELETE("/:id", h.DeleteCard)
		}

		decks := api.Group("/decks")
		{
			decks.GET("", h.ListDecks)
			decks.POST("", h.SaveDeck)
			decks.GET("/:id", h.GetDeck)
			decks.DELETE("/:id", h.DeleteDeck)
		}

		api.GET("/sync", h.ExportBackup)
		api.POST("/sync", h.ImportBackup)
	}

	return engine
}
