package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOrderItem is one line of a PlaceOrderRequest
type PlaceOrderItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

// RecipientRequest is the delivery contact of a new order
type RecipientRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"required,max=50"`
	RegionID string `json:"region_id" binding:"max=50"`
	Address  string `json:"address" binding:"required,max=500"`
	Note     string `json:"note" binding:"max=500"`
}

// PlaceOrderRequest is the input of PlaceOrder.
// SellerID and SellerRole are honoured only for administrators.
type PlaceOrderRequest struct {
	SellerID     *uuid.UUID       `json:"seller_id"`
	SellerRole   string           `json:"seller_role"`
	BuyerID      *uuid.UUID       `json:"buyer_id"`
	FulfillerID  *uuid.UUID       `json:"fulfiller_id"`
	Recipient    RecipientRequest `json:"recipient" binding:"required"`
	Items        []PlaceOrderItem `json:"items" binding:"required,min=1,dive"`
	ShippingCost decimal.Decimal  `json:"shipping_cost"`
	Notes        string           `json:"notes" binding:"max=1000"`
}

// FulfillPayload carries the optional data of a fulfill action
type FulfillPayload struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Notes          string `json:"notes"`
}

// FulfillResponse is returned by Fulfill
type FulfillResponse struct {
	Status string         `json:"status"`
	Order  *OrderResponse `json:"order"`
}

// OrderItemResponse is an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	Status               string              `json:"status"`
	AllowedActions       []string            `json:"allowed_actions"`
	SellerID             uuid.UUID           `json:"seller_id"`
	SellerRole           string              `json:"seller_role"`
	BuyerID              *uuid.UUID          `json:"buyer_id,omitempty"`
	FulfillerID          *uuid.UUID          `json:"fulfiller_id,omitempty"`
	RecipientName        string              `json:"recipient_name"`
	RecipientPhone       string              `json:"recipient_phone"`
	RegionID             string              `json:"region_id,omitempty"`
	Address              string              `json:"address"`
	Items                []OrderItemResponse `json:"items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	ShippingCost         decimal.Decimal     `json:"shipping_cost"`
	Commission           decimal.Decimal     `json:"commission"`
	MarketerProfit       decimal.Decimal     `json:"marketer_profit"`
	Total                decimal.Decimal     `json:"total"`
	TrackingNumber       string              `json:"tracking_number,omitempty"`
	Carrier              string              `json:"carrier,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	ProfitsDistributed   bool                `json:"profits_distributed"`
	ProfitsDistributedAt *time.Time          `json:"profits_distributed_at,omitempty"`
	ShipmentID           *uuid.UUID          `json:"shipment_id,omitempty"`
	ConfirmedAt          *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt            *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt          *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty"`
	ReturnedAt           *time.Time          `json:"returned_at,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain order to its API view
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			BasePrice:   it.BasePrice,
			Amount:      it.Amount(),
		}
	}
	allowed := order.AllowedActions(o.Status)
	actions := make([]string, len(allowed))
	for i, a := range allowed {
		actions[i] = string(a)
	}
	return &OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		Status:               o.Status.String(),
		AllowedActions:       actions,
		SellerID:             o.SellerID,
		SellerRole:           string(o.SellerRole),
		BuyerID:              o.BuyerID,
		FulfillerID:          o.FulfillerID,
		RecipientName:        o.Recipient.Name,
		RecipientPhone:       o.Recipient.Phone,
		RegionID:             o.Recipient.RegionID,
		Address:              o.Recipient.Address,
		Items:                items,
		Subtotal:             o.Subtotal,
		ShippingCost:         o.ShippingCost,
		Commission:           o.Commission,
		MarketerProfit:       o.MarketerProfit,
		Total:                o.Total,
		TrackingNumber:       o.TrackingNumber,
		Carrier:              o.Carrier,
		Notes:                o.Notes,
		ProfitsDistributed:   o.ProfitsDistributed,
		ProfitsDistributedAt: o.ProfitsDistributedAt,
		ShipmentID:           o.ShipmentID,
		ConfirmedAt:          o.ConfirmedAt,
		ShippedAt:            o.ShippedAt,
		DeliveredAt:          o.DeliveredAt,
		CancelledAt:          o.CancelledAt,
		ReturnedAt:           o.ReturnedAt,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = *ToOrderResponse(&orders[i])
	}
	return out
}
