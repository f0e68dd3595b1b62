package shipment

import (
	"fmt"
	"strings"

	"github.com/erp/fulfillment/internal/domain/order"
)

// PayloadOptions holds carrier-independent formatting settings
type PayloadOptions struct {
	BarcodePrefix string
}

// BuildPayload maps an order onto the carrier payload.
// The declared value is the amount the carrier collects on delivery.
func BuildPayload(o *order.Order, opts PayloadOptions) Payload {
	address := strings.TrimSpace(o.Recipient.Address)
	if note := strings.TrimSpace(o.Recipient.Note); note != "" {
		address = address + " - " + note
	}

	return Payload{
		ClientReference: o.ID.String(),
		RecipientName:   strings.TrimSpace(o.Recipient.Name),
		RecipientPhone:  strings.TrimSpace(o.Recipient.Phone),
		RegionID:        o.Recipient.RegionID,
		AddressLine:     address,
		DeclaredValue:   o.Total,
		Note:            o.Notes,
		Barcode:         Barcode(opts.BarcodePrefix, o.OrderNumber),
	}
}

// Barcode returns the human-readable barcode printed on the parcel label
func Barcode(prefix, orderNumber string) string {
	if prefix == "" {
		return orderNumber
	}
	return fmt.Sprintf("%s-%s", prefix, orderNumber)
}
