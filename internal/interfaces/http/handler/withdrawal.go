package handler

import (
	"github.com/erp/fulfillment/internal/application/withdrawal"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// WithdrawalHandler handles withdrawal endpoints
type WithdrawalHandler struct {
	BaseHandler
	service   *withdrawal.WithdrawalService
	adminOnly gin.HandlerFunc
}

// NewWithdrawalHandler creates a new WithdrawalHandler
func NewWithdrawalHandler(service *withdrawal.WithdrawalService, perms middleware.PermissionConfig) *WithdrawalHandler {
	return &WithdrawalHandler{
		service:   service,
		adminOnly: middleware.RequireAdmin(perms),
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *WithdrawalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := router.NewDomainGroup("withdrawals", "/withdrawals").
		POST("", h.Request).
		GET("/:id", h.Get)
	group.Group("withdrawal-review", "/:id").
		Use(h.adminOnly).
		POST("/approve", h.Approve).
		POST("/reject", h.Reject)
	group.RegisterRoutes(rg)
}

// Request godoc
// @Summary      Request a withdrawal
// @Description  Records a pending debit of amount plus fee against the caller's balance
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Param        request body withdrawal.RequestWithdrawalInput true "Withdrawal"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /withdrawals [post]
func (h *WithdrawalHandler) Request(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req withdrawal.RequestWithdrawalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.service.RequestWithdrawal(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @Summary      Get a withdrawal
// @Tags         withdrawals
// @Produce      json
// @Param        id path string true "Withdrawal ID"
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /withdrawals/{id} [get]
func (h *WithdrawalHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.GetWithdrawal(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve godoc
// @Summary      Approve a pending withdrawal
// @Tags         withdrawals
// @Produce      json
// @Param        id path string true "Withdrawal ID"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response "not pending"
// @Router       /withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject godoc
// @Summary      Reject a pending withdrawal
// @Description  Releases the pending amount; the balance is unchanged
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Param        id      path string                           true "Withdrawal ID"
// @Param        request body withdrawal.RejectWithdrawalInput true "Reason"
// @Success      200 {object} dto.Response
// @Router       /withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req withdrawal.RejectWithdrawalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	resp, err := h.service.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
