// Package http 模拟盘服务 HTTP 接口层
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/investtrack/internal/papertrade/application"
	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// PaperTradeHandler 负责处理模拟盘相关的 HTTP 请求
type PaperTradeHandler struct {
	app *application.PaperTradeService
}

// NewPaperTradeHandler 创建 HTTP 处理器
func NewPaperTradeHandler(app *application.PaperTradeService) *PaperTradeHandler {
	return &PaperTradeHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PaperTradeHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/papertrades")
	{
		api.POST("", h.Start)
		api.GET("", h.List)
		api.GET("/:id", h.Get)
		api.GET("/:id/status", h.GetStatus)
		api.POST("/:id/tick", h.Tick)
		api.POST("/:id/pause", h.Pause)
		api.POST("/:id/resume", h.Resume)
		api.POST("/:id/stop", h.Stop)
	}
}

// Start 启动模拟盘会话
func (h *PaperTradeHandler) Start(c *gin.Context) {
	var cmd application.StartPaperTradeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	pt, err := h.app.Start(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, strategydomain.ErrStrategyNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, strategydomain.ErrNotStrategyOwner):
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to start paper trade", "strategy_id", cmd.StrategyID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, pt)
}

// Get 获取会话详情
func (h *PaperTradeHandler) Get(c *gin.Context) {
	pt, err := h.app.GetPaperTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrPaperTradeNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "failed to get paper trade", "paper_trade_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, pt)
}

// List 按用户分页列出会话
func (h *PaperTradeHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, total, err := h.app.ListPaperTrades(c.Request.Context(), userID, offset, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list paper trades", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"paper_trades": sessions, "total": total})
}

// GetStatus 获取会话状态快照
func (h *PaperTradeHandler) GetStatus(c *gin.Context) {
	snapshot, err := h.app.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrPaperTradeNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "failed to get paper trade status", "paper_trade_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, snapshot)
}

// Tick 手动触发一次评估（调度方也可经 Kafka 触发）
func (h *PaperTradeHandler) Tick(c *gin.Context) {
	var cmd application.TickCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	cmd.PaperTradeID = c.Param("id")

	pt, err := h.app.Tick(c.Request.Context(), cmd)
	if err != nil {
		h.writeTransitionError(c, err, "failed to tick paper trade")
		return
	}
	response.Success(c, pt)
}

// Pause 暂停会话
func (h *PaperTradeHandler) Pause(c *gin.Context) {
	h.applyTransition(c, h.app.Pause, "failed to pause paper trade")
}

// Resume 恢复会话
func (h *PaperTradeHandler) Resume(c *gin.Context) {
	h.applyTransition(c, h.app.Resume, "failed to resume paper trade")
}

// Stop 终止会话
func (h *PaperTradeHandler) Stop(c *gin.Context) {
	h.applyTransition(c, h.app.Stop, "failed to stop paper trade")
}

func (h *PaperTradeHandler) applyTransition(
	c *gin.Context,
	apply func(ctx context.Context, paperTradeID, userID string) (*domain.PaperTrade, error),
	logMsg string,
) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}

	pt, err := apply(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.writeTransitionError(c, err, logMsg)
		return
	}
	response.Success(c, pt)
}

func (h *PaperTradeHandler) writeTransitionError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrPaperTradeNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrNotPaperTradeOwner):
		response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrSessionNotActive):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, strategydomain.ErrRuleEvaluatorRequired):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logging.Error(c.Request.Context(), logMsg, "paper_trade_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
