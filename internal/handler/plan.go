package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dcaservice/internal/service"
)

type PlanHandler struct {
	Service *service.PlanService
}

func (h *PlanHandler) Register(r *gin.Engine) {
	group := r.Group("/api/dca")
	group.POST("/plans", h.createPlan)
	group.GET("/plans/:id", h.getPlan)
	group.POST("/plans/:id/stop", h.stopPlan)
	group.GET("/plans/:id/executions", h.listExecutions)
	group.GET("/users/:userId/plans", h.listUserPlans)
	group.GET("/users/:userId/total", h.totalInvestment)
}

type createPlanRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Frequency string `json:"frequency" binding:"required"`
	ToAddress string `json:"to_address" binding:"required"`
	RiskLevel string `json:"risk_level"`
}

// @Summary Create a recurring investment plan
// @Tags dca
// @Accept json
// @Param body body createPlanRequest true "plan definition"
// @Success 200 {object} map[string]any
// @Router /api/dca/plans [post]
func (h *PlanHandler) createPlan(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	plan, err := h.Service.CreatePlan(c.Request.Context(), service.CreatePlanInput{
		UserID:    req.UserID,
		Amount:    amount,
		Frequency: req.Frequency,
		ToAddress: req.ToAddress,
		RiskLevel: req.RiskLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrUserNotFound):
			Error(c, http.StatusNotFound, "user not found", nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	Ok(c, plan, nil)
}

// @Summary Get a plan by id
// @Tags dca
// @Param id path string true "plan id"
// @Success 200 {object} map[string]any
// @Router /api/dca/plans/{id} [get]
func (h *PlanHandler) getPlan(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "plan id required", nil)
		return
	}
	plan, err := h.Service.GetPlan(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			Error(c, http.StatusNotFound, "plan not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, plan, nil)
}

// @Summary Stop a plan and cancel its schedule
// @Tags dca
// @Param id path string true "plan id"
// @Success 200 {object} map[string]any
// @Router /api/dca/plans/{id}/stop [post]
func (h *PlanHandler) stopPlan(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "plan id required", nil)
		return
	}
	plan, err := h.Service.StopPlan(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			Error(c, http.StatusNotFound, "plan not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, plan, nil)
}

// @Summary Execution history of a plan, most recent first
// @Tags dca
// @Param id path string true "plan id"
// @Param limit query int false "max rows"
// @Success 200 {object} map[string]any
// @Router /api/dca/plans/{id}/executions [get]
func (h *PlanHandler) listExecutions(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "plan id required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.Service.ListExecutions(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			Error(c, http.StatusNotFound, "plan not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary All plans of a user
// @Tags dca
// @Param userId path string true "user id"
// @Success 200 {object} map[string]any
// @Router /api/dca/users/{userId}/plans [get]
func (h *PlanHandler) listUserPlans(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user id required", nil)
		return
	}
	items, err := h.Service.ListUserPlans(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Sum of invested amounts across a user's plans
// @Tags dca
// @Param userId path string true "user id"
// @Success 200 {object} map[string]any
// @Router /api/dca/users/{userId}/total [get]
func (h *PlanHandler) totalInvestment(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user id required", nil)
		return
	}
	total, err := h.Service.TotalInvestment(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"user_id": userID, "total_invested": total.String()}, nil)
}
