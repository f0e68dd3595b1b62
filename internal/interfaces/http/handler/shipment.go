package handler

import (
	"context"

	"github.com/erp/fulfillment/internal/application/shipping"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderAuthorizer decides whether an actor may act on an order
type OrderAuthorizer interface {
	AuthorizeAction(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error
}

// ShipmentHandler handles carrier dispatch endpoints
type ShipmentHandler struct {
	BaseHandler
	dispatcher *shipping.DispatchService
	orders     OrderAuthorizer
	adminOnly  gin.HandlerFunc
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(dispatcher *shipping.DispatchService, orders OrderAuthorizer, perms middleware.PermissionConfig) *ShipmentHandler {
	return &ShipmentHandler{
		dispatcher: dispatcher,
		orders:     orders,
		adminOnly:  middleware.RequireAdmin(perms),
	}
}

// DispatchRequest is the optional body of POST /orders/:id/shipment/dispatch
type DispatchRequest struct {
	Carrier string `json:"carrier" binding:"max=50"`
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ShipmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("order-shipment", "/orders/:id/shipment").
		POST("/dispatch", h.Dispatch).
		POST("/resend", h.Resend).
		RegisterRoutes(rg)

	router.NewDomainGroup("shipments", "/shipments").
		Use(h.adminOnly).
		POST("/resend-pending", h.ResendPending).
		RegisterRoutes(rg)
}

// Dispatch godoc
// @Summary      Send an order to a carrier
// @Description  Creates the shipment on first use. A confirmed shipment is returned unchanged.
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Param        id      path string          true  "Order ID"
// @Param        request body DispatchRequest false "Carrier override"
// @Success      200 {object} dto.Response
// @Failure      502 {object} dto.Response "carrier rejected, can_retry=false"
// @Failure      503 {object} dto.Response "carrier unavailable, can_retry=true"
// @Router       /orders/{id}/shipment/dispatch [post]
func (h *ShipmentHandler) Dispatch(c *gin.Context) {
	orderID, ok := h.authorize(c)
	if !ok {
		return
	}
	var req DispatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), orderID, req.Carrier)
	h.respond(c, result, err)
}

// Resend godoc
// @Summary      Retry the carrier call of an existing shipment
// @Tags         shipments
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response "no shipment for the order"
// @Failure      502 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /orders/{id}/shipment/resend [post]
func (h *ShipmentHandler) Resend(c *gin.Context) {
	orderID, ok := h.authorize(c)
	if !ok {
		return
	}
	result, err := h.dispatcher.Resend(c.Request.Context(), orderID)
	h.respond(c, result, err)
}

// ResendPending godoc
// @Summary      Retry every pending shipment
// @Tags         shipments
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Router       /shipments/resend-pending [post]
func (h *ShipmentHandler) ResendPending(c *gin.Context) {
	result, err := h.dispatcher.ResendPending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ShipmentHandler) authorize(c *gin.Context) (uuid.UUID, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return uuid.Nil, false
	}
	orderID, ok := h.pathID(c)
	if !ok {
		return uuid.Nil, false
	}
	if err := h.orders.AuthorizeAction(c.Request.Context(), actor, orderID); err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	return orderID, true
}

// respond reports a failed carrier call with the shipment state so the caller
// can see can_retry next to the error code
func (h *ShipmentHandler) respond(c *gin.Context, result *shipping.DispatchResult, err error) {
	if err != nil {
		if result != nil {
			h.HandleErrorWithData(c, err, result)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
