package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardbase/model"
	"cardbase/store"
)

// ExportBackup 下载全部卡片和卡组
func (h *Handler) ExportBackup(c *gin.Context) {
	backup, err := h.decks.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := sonic.Marshal(backup)
	if err != nil {
		h.fail(c, fmt.Errorf("encode backup: %w", err))
		return
	}
	filename := fmt.Sprintf("cardbase-backup-%s.json", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportBackup 恢复备份，完成后刷新目录快照
func (h *Handler) ImportBackup(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "读取请求体失败")
		return
	}
	var backup model.Backup
	if err := sonic.Unmarshal(raw, &backup); err != nil {
		badRequest(c, "备份文件格式错误: "+err.Error())
		return
	}
	if backup.Version > store.BackupVersion {
		badRequest(c, fmt.Sprintf("不支持的备份版本: %d", backup.Version))
		return
	}

	ctx := c.Request.Context()
	if err := h.decks.Import(ctx, backup); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.catalog.Refresh(ctx); err != nil {
		h.logger.Warn("refresh after import failed", zap.Error(err))
	}
	ok(c, gin.H{"cards": len(backup.Cards), "decks": len(backup.Decks)})
}
