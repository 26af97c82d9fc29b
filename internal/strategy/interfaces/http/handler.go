package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/investtrack/internal/strategy/application"
	"github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// StrategyHandler 负责处理策略相关的 HTTP 请求
type StrategyHandler struct {
	cmd   *application.StrategyCommandService
	query *application.StrategyQueryService
}

// NewStrategyHandler 创建 HTTP 处理器
func NewStrategyHandler(cmd *application.StrategyCommandService, query *application.StrategyQueryService) *StrategyHandler {
	return &StrategyHandler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由
func (h *StrategyHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/strategies")
	{
		api.POST("", h.CreateStrategy)
		api.GET("", h.ListStrategies)
		api.GET("/:id", h.GetStrategy)
		api.PUT("/:id", h.UpdateStrategy)
		api.DELETE("/:id", h.DeleteStrategy)
		api.POST("/:id/evaluate", h.EvaluateConditions)
	}
}

// CreateStrategy 创建策略
func (h *StrategyHandler) CreateStrategy(c *gin.Context) {
	var cmd application.CreateStrategyCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	strategy, err := h.cmd.CreateStrategy(c.Request.Context(), cmd)
	if err != nil {
		if isValidationError(err) {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "failed to create strategy", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, strategy)
}

// GetStrategy 获取策略详情
func (h *StrategyHandler) GetStrategy(c *gin.Context) {
	dto, err := h.query.GetStrategy(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrStrategyNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "failed to get strategy", "strategy_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, dto)
}

// ListStrategies 列出用户策略
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	strategies, total, err := h.query.ListStrategies(c.Request.Context(), userID, offset, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to list strategies", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"strategies": strategies, "total": total})
}

// UpdateStrategy 更新策略
func (h *StrategyHandler) UpdateStrategy(c *gin.Context) {
	var cmd application.UpdateStrategyCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	cmd.StrategyID = c.Param("id")

	strategy, err := h.cmd.UpdateStrategy(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStrategyNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, domain.ErrNotStrategyOwner):
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
		case isValidationError(err):
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to update strategy", "strategy_id", cmd.StrategyID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, strategy)
}

// DeleteStrategy 删除策略
func (h *StrategyHandler) DeleteStrategy(c *gin.Context) {
	cmd := application.DeleteStrategyCommand{
		StrategyID: c.Param("id"),
		UserID:     c.Query("user_id"),
	}
	if cmd.UserID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}

	if err := h.cmd.DeleteStrategy(c.Request.Context(), cmd); err != nil {
		switch {
		case errors.Is(err, domain.ErrStrategyNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, domain.ErrNotStrategyOwner):
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to delete strategy", "strategy_id", cmd.StrategyID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, gin.H{"deleted": cmd.StrategyID})
}

// EvaluateConditions 对提交的 K 线对做一次条件评估
func (h *StrategyHandler) EvaluateConditions(c *gin.Context) {
	var query application.EvaluateQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	query.StrategyID = c.Param("id")

	result, err := h.query.EvaluateConditions(c.Request.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStrategyNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, domain.ErrRuleEvaluatorRequired):
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		default:
			logging.Error(c.Request.Context(), "failed to evaluate conditions", "strategy_id", query.StrategyID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	response.Success(c, result)
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrNoEntryConditions) ||
		errors.Is(err, domain.ErrUnknownStrategyType) ||
		errors.Is(err, domain.ErrUnknownIndicator) ||
		errors.Is(err, domain.ErrUnknownOperator) ||
		errors.Is(err, domain.ErrUnknownPhase) ||
		errors.Is(err, domain.ErrUnknownLogic) ||
		errors.Is(err, domain.ErrMissingThreshold) ||
		errors.Is(err, domain.ErrInvalidInitialCapital) ||
		errors.Is(err, domain.ErrInvalidPositionSize)
}
