// Package http 风险分析服务 HTTP 接口层
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/investtrack/internal/risk/application"
	"github.com/wyfcoding/investtrack/internal/risk/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// RiskHandler 负责处理风险分析相关的 HTTP 请求
type RiskHandler struct {
	app *application.RiskService
}

// NewRiskHandler 创建 HTTP 处理器
func NewRiskHandler(app *application.RiskService) *RiskHandler {
	return &RiskHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *RiskHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/risk")
	{
		api.POST("/report", h.ComputeReport)
		api.POST("/var", h.ComputeVaR)
		api.POST("/drawdown", h.ComputeDrawdown)
		api.POST("/beta", h.ComputeBeta)
		api.POST("/volatility", h.ComputeVolatility)
		api.POST("/correlation", h.ComputeCorrelation)
		api.POST("/diversification", h.ComputeDiversification)
		api.POST("/stops", h.ComputeStops)
	}
}

type positionsRequest struct {
	Positions []domain.Position `json:"positions" binding:"required,min=1"`
}

// ComputeReport 生成完整风险报告
func (h *RiskHandler) ComputeReport(c *gin.Context) {
	var cmd application.ReportCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.app.ComputeReport(c.Request.Context(), cmd)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to compute risk report", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, report)
}

// ComputeVaR 计算组合 VaR
func (h *RiskHandler) ComputeVaR(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeVaR(c.Request.Context(), req.Positions))
}

// ComputeDrawdown 计算组合回撤
func (h *RiskHandler) ComputeDrawdown(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeDrawdown(c.Request.Context(), req.Positions))
}

type betaRequest struct {
	Positions       []domain.Position `json:"positions" binding:"required,min=1"`
	BenchmarkTicker string            `json:"benchmark_ticker"`
}

// ComputeBeta 计算组合贝塔
func (h *RiskHandler) ComputeBeta(c *gin.Context) {
	var req betaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeBeta(c.Request.Context(), req.Positions, req.BenchmarkTicker))
}

// ComputeVolatility 计算年化波动率
func (h *RiskHandler) ComputeVolatility(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeVolatility(c.Request.Context(), req.Positions))
}

// ComputeCorrelation 计算持仓间相关性
func (h *RiskHandler) ComputeCorrelation(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeCorrelation(c.Request.Context(), req.Positions))
}

// ComputeDiversification 计算分散度
func (h *RiskHandler) ComputeDiversification(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeDiversification(c.Request.Context(), req.Positions))
}

// ComputeStops 计算止损/止盈建议
func (h *RiskHandler) ComputeStops(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, h.app.ComputeStops(c.Request.Context(), req.Positions))
}
