package handler

import (
	"github.com/erp/fulfillment/internal/application/settlement"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler serves profit distribution and the ledger views
type SettlementHandler struct {
	BaseHandler
	distributor *settlement.ProfitDistributionService
	ledger      *settlement.LedgerService
	guard       gin.HandlerFunc
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(
	distributor *settlement.ProfitDistributionService,
	ledger *settlement.LedgerService,
	perms middleware.PermissionConfig,
) *SettlementHandler {
	return &SettlementHandler{
		distributor: distributor,
		ledger:      ledger,
		guard:       middleware.RequireAdmin(perms),
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("settlements", "/settlements").
		Use(h.guard).
		POST("/distribute", h.Distribute).
		RegisterRoutes(rg)

	router.NewDomainGroup("ledger", "/ledger").
		GET("/account", h.GetAccount).
		GET("/transactions", h.ListTransactions).
		RegisterRoutes(rg)
}

// Distribute godoc
// @Summary      Distribute profits of delivered orders
// @Description  Credits sellers and the platform once per order. Items fail independently.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body settlement.DistributeRequest true "Orders"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Router       /settlements/distribute [post]
func (h *SettlementHandler) Distribute(c *gin.Context) {
	var req settlement.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.distributor.DistributeBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetAccount godoc
// @Summary      Balance of the caller's account
// @Description  Administrators may pass account_id to inspect another account
// @Tags         ledger
// @Produce      json
// @Param        account_id query string false "Account ID (admin only)"
// @Success      200 {object} dto.Response
// @Router       /ledger/account [get]
func (h *SettlementHandler) GetAccount(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	account, err := h.ledger.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ListTransactions godoc
// @Summary      Ledger entries of the caller's account
// @Tags         ledger
// @Produce      json
// @Param        account_id  query string false "Account ID (admin only)"
// @Param        status      query string false "pending, approved or rejected"
// @Param        direction   query string false "credit or debit"
// @Param        source_type query string false "order_profit, order_commission or withdrawal"
// @Success      200 {object} dto.Response
// @Router       /ledger/transactions [get]
func (h *SettlementHandler) ListTransactions(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	for _, key := range []string{"status", "direction", "source_type"} {
		if v := c.Query(key); v != "" {
			filter.Filters[key] = v
		}
	}

	page, err := h.ledger.ListTransactions(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// accountID resolves whose ledger is requested. Only administrators may name
// an account other than their own.
func (h *SettlementHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return uuid.Nil, false
	}
	raw := c.Query("account_id")
	if raw == "" {
		return actor.ID, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid account_id: "+raw)
		return uuid.Nil, false
	}
	if id != actor.ID && actor.Role != shared.RoleAdmin {
		h.HandleError(c, shared.NewForbiddenError("Actor %s may not view account %s", actor.ID, id))
		return uuid.Nil, false
	}
	return id, true
}
