package shipment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payload is the carrier-neutral description of a parcel
type Payload struct {
	ClientReference string          `json:"client_reference"`
	RecipientName   string          `json:"recipient_name"`
	RecipientPhone  string          `json:"recipient_phone"`
	RegionID        string          `json:"region_id"`
	AddressLine     string          `json:"address_line"`
	DeclaredValue   decimal.Decimal `json:"declared_value"`
	Note            string          `json:"note,omitempty"`
	Barcode         string          `json:"barcode"`
}

// CarrierResponse is what a carrier returns on acceptance
type CarrierResponse struct {
	ExternalID string
	Status     string
}

// Carrier is the outbound port to a shipping provider
type Carrier interface {
	Code() string
	CredentialsRef() string
	CreateShipment(ctx context.Context, payload Payload) (*CarrierResponse, error)
}

// CarrierError classifies a failed carrier call
type CarrierError struct {
	Carrier    string
	StatusCode int // 0 for transport-level failures
	Retryable  bool
	Err        error
}

func (e *CarrierError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("carrier %s: HTTP %d: %v", e.Carrier, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("carrier %s: %v", e.Carrier, e.Err)
}

func (e *CarrierError) Unwrap() error { return e.Err }

// Is lets errors.Is match the retryable/fatal sentinels
func (e *CarrierError) Is(target error) bool {
	if e.Retryable {
		return errors.Is(shared.ErrExternalRetryable, target)
	}
	return errors.Is(shared.ErrExternalFatal, target)
}

// IsRetryableStatus reports whether an HTTP status means the carrier is
// temporarily unavailable
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// NewHTTPStatusError builds a CarrierError from a non-2xx response
func NewHTTPStatusError(carrier string, code int, body string) *CarrierError {
	return &CarrierError{
		Carrier:    carrier,
		StatusCode: code,
		Retryable:  IsRetryableStatus(code),
		Err:        fmt.Errorf("%s", body),
	}
}

// NewTransportError builds a retryable CarrierError for network failures and timeouts
func NewTransportError(carrier string, err error) *CarrierError {
	return &CarrierError{Carrier: carrier, Retryable: true, Err: err}
}

// NewFatalError builds a non-retryable CarrierError
func NewFatalError(carrier string, err error) *CarrierError {
	return &CarrierError{Carrier: carrier, Err: err}
}

// IsRetryable reports whether err should be offered a retry
func IsRetryable(err error) bool {
	var ce *CarrierError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return errors.Is(err, shared.ErrExternalRetryable)
}

// CarrierRegistry resolves carriers by code
type CarrierRegistry struct {
	mu          sync.RWMutex
	carriers    map[string]Carrier
	defaultCode string
}

// NewCarrierRegistry creates an empty registry
func NewCarrierRegistry(defaultCode string) *CarrierRegistry {
	return &CarrierRegistry{
		carriers:    make(map[string]Carrier),
		defaultCode: defaultCode,
	}
}

// Register adds or replaces a carrier
func (r *CarrierRegistry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Code()] = c
}

// Get returns the carrier for code, or the default carrier if code is empty
func (r *CarrierRegistry) Get(code string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if code == "" {
		code = r.defaultCode
	}
	c, ok := r.carriers[code]
	if !ok {
		return nil, shared.NewValidationError("Unknown carrier: %s", code)
	}
	return c, nil
}

// Codes returns the registered carrier codes, sorted
func (r *CarrierRegistry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.carriers))
	for code := range r.carriers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
