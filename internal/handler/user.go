package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dcaservice/internal/ledger"
	"dcaservice/internal/models"
	"dcaservice/internal/repository"
)

type UserHandler struct {
	Repo   repository.Repository
	Ledger ledger.Ledger
	Logger *zap.Logger
}

func (h *UserHandler) Register(r *gin.Engine) {
	group := r.Group("/api/users")
	group.POST("", h.createUser)
	group.GET("/:address", h.getUser)
	group.GET("/:address/balances", h.balances)
}

type createUserRequest struct {
	Address string `json:"address" binding:"required"`
}

// @Summary Create or fetch a user by wallet address
// @Tags users
// @Accept json
// @Param body body createUserRequest true "wallet address"
// @Success 200 {object} map[string]any
// @Router /api/users [post]
func (h *UserHandler) createUser(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "wallet address is required", nil)
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		Error(c, http.StatusBadRequest, "wallet address is required", nil)
		return
	}

	existing, err := h.Repo.GetUserByAddress(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if existing != nil {
		Ok(c, existing, nil)
		return
	}

	user := &models.User{ID: uuid.NewString(), Address: address}
	if err := h.Repo.CreateUser(c.Request.Context(), user); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("user created", zap.String("user_id", user.ID), zap.String("address", address))
	}
	Ok(c, user, nil)
}

// @Summary Get a user by wallet address
// @Tags users
// @Param address path string true "wallet address"
// @Success 200 {object} map[string]any
// @Router /api/users/{address} [get]
func (h *UserHandler) getUser(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	user, err := h.Repo.GetUserByAddress(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	Ok(c, user, nil)
}

// @Summary Wallet balances via the configured ledger backend
// @Tags users
// @Param address path string true "wallet address"
// @Success 200 {object} map[string]any
// @Router /api/users/{address}/balances [get]
func (h *UserHandler) balances(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	native, err := h.Ledger.NativeBalance(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	token, err := h.Ledger.TokenBalance(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"address": address,
		"backend": h.Ledger.Name(),
		"native":  native.String(),
		"token":   token.String(),
	}, nil)
}
