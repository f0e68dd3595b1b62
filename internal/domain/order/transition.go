package order

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Action is a fulfillment step requested by an actor
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionProcess Action = "process"
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
	ActionReturn  Action = "return"
)

// Actions lists every action in table order
var Actions = []Action{ActionConfirm, ActionProcess, ActionShip, ActionDeliver, ActionCancel, ActionReturn}

// ParseAction converts user input into an Action
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitionTable[a]; !ok {
		return "", shared.NewValidationError("Unknown action: %s", s)
	}
	return a, nil
}

// Payload carries the optional data an action may need
type Payload struct {
	TrackingNumber string
	Carrier        string
	Notes          string
}

type transition struct {
	from     []Status
	to       Status
	validate func(p Payload) error
	stamp    func(o *Order, at time.Time, by uuid.UUID)
	event    func(o *Order, actor shared.Actor) shared.DomainEvent
}

// transitionTable is the single source of truth for which action moves an
// order from which statuses into which status.
var transitionTable = map[Action]transition{
	ActionConfirm: {
		from:  []Status{StatusPending},
		to:    StatusConfirmed,
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.ConfirmedAt, o.ConfirmedBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderConfirmedEvent(o, a) },
	},
	ActionProcess: {
		from:  []Status{StatusConfirmed},
		to:    StatusProcessing,
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.ProcessingAt, o.ProcessingBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderProcessingEvent(o, a) },
	},
	ActionShip: {
		from: []Status{StatusProcessing},
		to:   StatusShipped,
		validate: func(p Payload) error {
			if strings.TrimSpace(p.TrackingNumber) == "" {
				return shared.NewValidationError("Tracking number is required to ship an order")
			}
			return nil
		},
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.ShippedAt, o.ShippedBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderShippedEvent(o, a) },
	},
	ActionDeliver: {
		from:  []Status{StatusShipped},
		to:    StatusDelivered,
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.DeliveredAt, o.DeliveredBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderDeliveredEvent(o, a) },
	},
	ActionCancel: {
		from:  []Status{StatusPending, StatusConfirmed, StatusProcessing},
		to:    StatusCancelled,
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.CancelledAt, o.CancelledBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderCancelledEvent(o, a) },
	},
	ActionReturn: {
		from:  []Status{StatusShipped, StatusDelivered},
		to:    StatusReturned,
		stamp: func(o *Order, at time.Time, by uuid.UUID) { o.ReturnedAt, o.ReturnedBy = &at, &by },
		event: func(o *Order, a shared.Actor) shared.DomainEvent { return NewOrderReturnedEvent(o, a) },
	},
}

// AllowedActions returns the actions permitted from the given status
func AllowedActions(s Status) []Action {
	var out []Action
	for _, a := range Actions {
		if transitionTable[a].allows(s) {
			out = append(out, a)
		}
	}
	return out
}

func (t transition) allows(s Status) bool {
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Apply runs an action against the order.
// Every check happens before the first mutation: a failed Apply leaves the
// order exactly as it was.
func (o *Order) Apply(action Action, actor shared.Actor, payload Payload, now time.Time) error {
	t, ok := transitionTable[action]
	if !ok {
		return shared.NewValidationError("Unknown action: %s", action)
	}
	if !o.CanBeActedOnBy(actor) {
		return shared.NewForbiddenError("Actor %s may not %s order %s", actor.ID, action, o.OrderNumber)
	}
	if !t.allows(o.Status) {
		return shared.NewInvalidTransitionError("Cannot %s order in %s status", action, o.Status)
	}
	if t.validate != nil {
		if err := t.validate(payload); err != nil {
			return err
		}
	}

	o.Status = t.to
	t.stamp(o, now, actor.ID)
	if payload.TrackingNumber != "" {
		o.TrackingNumber = strings.TrimSpace(payload.TrackingNumber)
	}
	if payload.Carrier != "" {
		o.Carrier = payload.Carrier
	}
	if payload.Notes != "" {
		o.Notes = payload.Notes
	}
	o.Touch(now)
	o.AddDomainEvent(t.event(o, actor))

	return nil
}
