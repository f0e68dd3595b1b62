package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type name used in domain events
const AggregateTypeOrder = "Order"

// Status represents the fulfillment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// IsTerminal reports whether no further action is possible from this status
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// IsDispatchable reports whether a carrier shipment may be sent for an
// order in this status: accepted by the seller and not yet delivered.
func (s Status) IsDispatchable() bool {
	return s == StatusConfirmed || s == StatusProcessing || s == StatusShipped
}

func (s Status) String() string {
	return string(s)
}

// Recipient holds the delivery contact of an order
type Recipient struct {
	Name     string
	Phone    string
	RegionID string
	Address  string
	Note     string
}

// Validate checks the recipient has enough data to be shipped to
func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return shared.NewValidationError("Recipient name is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return shared.NewValidationError("Recipient phone is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		return shared.NewValidationError("Recipient address is required")
	}
	return nil
}

// Item is a line of an order. Prices are snapshotted at checkout.
type Item struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal // price charged to the buyer
	BasePrice   decimal.Decimal // price owed to the platform; the difference is the seller margin
}

// Amount returns UnitPrice × Quantity
func (i Item) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Margin returns the seller margin of the line, never negative
func (i Item) Margin() decimal.Decimal {
	m := i.UnitPrice.Sub(i.BasePrice)
	if m.IsNegative() {
		return decimal.Zero
	}
	return m.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root tracking an order from checkout to delivery.
// Monetary fields are computed once in NewOrder and never rewritten.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber string
	SellerID    uuid.UUID
	SellerRole  shared.Role
	BuyerID     *uuid.UUID
	FulfillerID *uuid.UUID
	Recipient   Recipient
	Items       []Item
	Status      Status

	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	Commission     decimal.Decimal
	MarketerProfit decimal.Decimal
	Total          decimal.Decimal

	TrackingNumber string
	Carrier        string
	Notes          string

	ConfirmedAt  *time.Time
	ConfirmedBy  *uuid.UUID
	ProcessingAt *time.Time
	ProcessingBy *uuid.UUID
	ShippedAt    *time.Time
	ShippedBy    *uuid.UUID
	DeliveredAt  *time.Time
	DeliveredBy  *uuid.UUID
	CancelledAt  *time.Time
	CancelledBy  *uuid.UUID
	ReturnedAt   *time.Time
	ReturnedBy   *uuid.UUID

	ProfitsDistributed   bool
	ProfitsDistributedAt *time.Time
	ShipmentID           *uuid.UUID
}

// NewItemInput describes one line of a new order
type NewItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	BasePrice   decimal.Decimal
}

// NewOrderInput holds everything needed to place an order
type NewOrderInput struct {
	OrderNumber    string
	SellerID       uuid.UUID
	SellerRole     shared.Role
	BuyerID        *uuid.UUID
	FulfillerID    *uuid.UUID
	Recipient      Recipient
	Items          []NewItemInput
	ShippingCost   decimal.Decimal
	CommissionRate decimal.Decimal // percent of subtotal
	Notes          string
}

// NewOrder creates a pending order and snapshots its monetary fields
func NewOrder(in NewOrderInput) (*Order, error) {
	if in.OrderNumber == "" {
		return nil, shared.NewValidationError("Order number is required")
	}
	if in.SellerID == uuid.Nil {
		return nil, shared.NewValidationError("Seller is required")
	}
	if !in.SellerRole.IsValid() {
		return nil, shared.NewValidationError("Invalid seller role: %s", in.SellerRole)
	}
	if err := in.Recipient.Validate(); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, shared.NewValidationError("Order must have at least one item")
	}
	if in.ShippingCost.IsNegative() {
		return nil, shared.NewValidationError("Shipping cost cannot be negative")
	}
	if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("Commission rate must be between 0 and 100")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       in.OrderNumber,
		SellerID:          in.SellerID,
		SellerRole:        in.SellerRole,
		BuyerID:           in.BuyerID,
		FulfillerID:       in.FulfillerID,
		Recipient:         in.Recipient,
		Status:            StatusPending,
		ShippingCost:      in.ShippingCost.Round(2),
		Notes:             in.Notes,
	}

	for idx, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, shared.NewValidationError("Item %d: quantity must be positive", idx+1)
		}
		if !it.UnitPrice.IsPositive() {
			return nil, shared.NewValidationError("Item %d: unit price must be positive", idx+1)
		}
		if it.BasePrice.IsNegative() {
			return nil, shared.NewValidationError("Item %d: base price cannot be negative", idx+1)
		}
		o.Items = append(o.Items, Item{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			BasePrice:   it.BasePrice,
		})
	}

	subtotal := decimal.Zero
	profit := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.Amount())
		profit = profit.Add(it.Margin())
	}
	o.Subtotal = subtotal.Round(2)
	o.MarketerProfit = profit.Round(2)
	o.Commission = subtotal.Mul(in.CommissionRate).Div(decimal.NewFromInt(100)).Round(2)
	o.Total = o.Subtotal.Add(o.ShippingCost)

	o.AddDomainEvent(NewOrderPlacedEvent(o))

	return o, nil
}

// NewOrderNumber generates a human-readable order number such as ORD-20260102-3F9A1C
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// OwnerID returns the party accountable for fulfilling the order:
// the assigned fulfiller when set, otherwise the seller.
func (o *Order) OwnerID() uuid.UUID {
	if o.FulfillerID != nil && *o.FulfillerID != uuid.Nil {
		return *o.FulfillerID
	}
	return o.SellerID
}

// CanBeActedOnBy reports whether the actor owns the order or holds the admin override
func (o *Order) CanBeActedOnBy(actor shared.Actor) bool {
	return actor.IsAdmin() || actor.Owns(o.OwnerID())
}

// IsDelivered reports whether the order reached delivered
func (o *Order) IsDelivered() bool {
	return o.Status == StatusDelivered
}

// MarkProfitsDistributed sets the distribution guard
func (o *Order) MarkProfitsDistributed(at time.Time) error {
	if !o.IsDelivered() {
		return shared.NewInvalidTransitionError("Cannot distribute profits for order in %s status", o.Status)
	}
	if o.ProfitsDistributed {
		return shared.ErrAlreadyDistributed
	}
	o.ProfitsDistributed = true
	o.ProfitsDistributedAt = &at
	o.Touch(at)
	o.AddDomainEvent(NewProfitsDistributedEvent(o))
	return nil
}

// AttachShipment links the carrier-facing shipment record
func (o *Order) AttachShipment(shipmentID uuid.UUID) {
	o.ShipmentID = &shipmentID
}
