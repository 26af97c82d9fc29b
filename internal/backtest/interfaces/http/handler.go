package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/investtrack/internal/backtest/application"
	"github.com/wyfcoding/investtrack/internal/backtest/domain"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// BacktestHandler 负责处理回测相关的 HTTP 请求
type BacktestHandler struct {
	app *application.BacktestApplicationService
}

// NewBacktestHandler 创建 HTTP 处理器
func NewBacktestHandler(app *application.BacktestApplicationService) *BacktestHandler {
	return &BacktestHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *BacktestHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/backtests")
	{
		api.POST("", h.RunBacktest)
		api.GET("/:id", h.GetBacktest)
		api.GET("", h.ListBacktests)
		api.DELETE("/:id", h.DeleteBacktest)
	}
}

// RunBacktest 运行回测
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var cmd application.RunBacktestCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.RunBacktest(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, strategydomain.ErrStrategyNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, strategydomain.ErrNotStrategyOwner):
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
		case errors.Is(err, strategydomain.ErrNoEntryConditions),
			errors.Is(err, strategydomain.ErrUnknownIndicator),
			errors.Is(err, strategydomain.ErrUnknownOperator),
			errors.Is(err, strategydomain.ErrRuleEvaluatorRequired):
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to run backtest", "strategy_id", cmd.StrategyID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, result)
}

// GetBacktest 获取回测详情
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	result, err := h.app.GetBacktest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrBacktestNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "failed to get backtest", "backtest_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, result)
}

// ListBacktests 按策略列出回测
func (h *BacktestHandler) ListBacktests(c *gin.Context) {
	strategyID := c.Query("strategy_id")
	if strategyID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "strategy_id is required", "")
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	backtests, total, err := h.app.ListBacktests(c.Request.Context(), strategyID, offset, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list backtests", "strategy_id", strategyID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"backtests": backtests, "total": total})
}

// DeleteBacktest 删除回测记录
func (h *BacktestHandler) DeleteBacktest(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}

	if err := h.app.DeleteBacktest(c.Request.Context(), c.Param("id"), userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrBacktestNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, domain.ErrNotBacktestOwner):
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to delete backtest", "backtest_id", c.Param("id"), "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("id")})
}
