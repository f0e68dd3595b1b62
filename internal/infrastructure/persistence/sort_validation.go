package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if whitelisted, otherwise defaultField.
// Sort fields are interpolated into ORDER BY, so only whitelisted names may pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"status":       true,
	"total":        true,
	"delivered_at": true,
}

// LedgerTransactionSortFields contains allowed sort fields for ledger transactions
var LedgerTransactionSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
	"status":     true,
	"direction":  true,
}
