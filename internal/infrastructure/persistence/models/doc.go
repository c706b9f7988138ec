// Package models contains the GORM persistence models of the room tab ledger.
//
// Models carry the table mappings and gorm tags; domain types in
// internal/domain/tab stay free of them. Each model has ToDomain and a
// matching FromDomain constructor.
//
//   - tab.go: sessions, orders, order lines, products and room occupants
//   - webhook.go: webhook events and their per-destination deliveries
package models
