package handler

import (
	"github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	service *fulfillment.FulfillmentService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *fulfillment.FulfillmentService) *OrderHandler {
	return &OrderHandler{service: service}
}

// FulfillRequest is the body of POST /orders/:id/fulfill
type FulfillRequest struct {
	Action         string `json:"action" binding:"required,order_action"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
	Carrier        string `json:"carrier" binding:"max=50"`
	Notes          string `json:"notes" binding:"max=1000"`
}

// RegisterRoutes implements router.RouteRegistrar
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("orders", "/orders").
		POST("", h.PlaceOrder).
		GET("", h.ListOrders).
		GET("/:id", h.GetOrder).
		POST("/:id/fulfill", h.Fulfill).
		RegisterRoutes(rg)
}

// PlaceOrder godoc
// @Summary      Place an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body fulfillment.PlaceOrderRequest true "Order"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req fulfillment.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.service.PlaceOrder(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListOrders godoc
// @Summary      List orders visible to the caller
// @Tags         orders
// @Produce      json
// @Param        status    query string false "Status filter"
// @Param        page      query int    false "Page"
// @Param        page_size query int    false "Page size"
// @Success      200 {object} dto.Response
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	page, err := h.service.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Fulfill godoc
// @Summary      Apply a fulfillment action
// @Description  Moves the order along confirm, process, ship, deliver, cancel or return
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string         true "Order ID"
// @Param        request body FulfillRequest true "Action"
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.service.Fulfill(c.Request.Context(), id, req.Action, actor, fulfillment.FulfillPayload{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Notes:          req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
