package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/anonbbs/attachments"
	"github.com/cppla/anonbbs/config"
	"github.com/cppla/anonbbs/service"
	"github.com/cppla/anonbbs/utils"
)

// ConfigController serves the board limits and notice to API clients.
type ConfigController struct {
	cfg   config.AppConfig
	board *service.BoardService
}

func NewConfigController(cfg config.AppConfig, board *service.BoardService) *ConfigController {
	return &ConfigController{cfg: cfg, board: board}
}

// GetLimits returns what a client must know before posting.
func (c *ConfigController) GetLimits(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"max_upload_bytes":   c.cfg.MaxUploadBytes,
		"max_body_bytes":     c.cfg.MaxBodyBytes,
		"page_size":          c.board.PageSize(),
		"allowed_extensions": attachments.AllowedExtensions(),
		"strict_attachments": c.board.StrictAttachments(),
	})
}

// GetNotice returns announcement/notice content configured via config.
func (c *ConfigController) GetNotice(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title": c.cfg.NoticeTitle,
		"html":  c.cfg.NoticeHTML,
	})
}
