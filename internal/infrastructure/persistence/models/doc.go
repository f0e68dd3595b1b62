// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from
// its domain type with ToDomain / FromDomain.
//
// Tables:
//   - orders, order_items: the order aggregate
//   - ledger_accounts, ledger_transactions: balances and their append-only log
//   - shipments: carrier-facing dispatch records
package models
