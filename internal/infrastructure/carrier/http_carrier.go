// Package carrier contains outbound adapters to shipping providers.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxResponseSize bounds how much of a carrier reply is read
const maxResponseSize = 1 << 20

// HTTPCarrier posts shipments to a JSON carrier API
type HTTPCarrier struct {
	code           string
	credentialsRef string
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	logger         *zap.Logger
}

// createShipmentResponse is the carrier's acceptance body
type createShipmentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NewHTTPCarrier creates a carrier adapter from configuration
func NewHTTPCarrier(cfg config.CarrierConfig, logger *zap.Logger) (*HTTPCarrier, error) {
	if cfg.Code == "" {
		return nil, errors.New("carrier code is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("carrier %s: base_url is required", cfg.Code)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPCarrier{
		code:           cfg.Code,
		credentialsRef: cfg.CredentialsRef,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger.With(zap.String("carrier", cfg.Code)),
	}, nil
}

// Code returns the carrier code used for registry lookup
func (c *HTTPCarrier) Code() string { return c.code }

// CredentialsRef names the credential set this adapter authenticates with
func (c *HTTPCarrier) CredentialsRef() string { return c.credentialsRef }

// CreateShipment submits payload and returns the carrier-assigned id.
// Errors are always *shipment.CarrierError.
func (c *HTTPCarrier) CreateShipment(ctx context.Context, payload shipment.Payload) (*shipment.CarrierResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, shipment.NewFatalError(c.code, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments", bytes.NewReader(body))
	if err != nil {
		return nil, shipment.NewFatalError(c.code, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Carrier request failed",
			zap.String("client_reference", payload.ClientReference),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, shipment.NewTransportError(c.code, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shipment.NewTransportError(c.code, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("Carrier responded",
		zap.String("client_reference", payload.ClientReference),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, shipment.NewHTTPStatusError(c.code, resp.StatusCode, truncate(string(respBody), 512))
	}

	var out createShipmentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, shipment.NewFatalError(c.code, fmt.Errorf("failed to decode response: %w", err))
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, shipment.NewFatalError(c.code, errors.New("response has no shipment id"))
	}

	return &shipment.CarrierResponse{ExternalID: out.ID, Status: out.Status}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
