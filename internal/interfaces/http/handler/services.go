package handler

import (
	"context"

	tabapp "github.com/roomtab/backend/internal/application/tab"
)

// OrderCreator accepts guest orders
type OrderCreator interface {
	CreateOrder(ctx context.Context, req tabapp.CreateOrderRequest) (*tabapp.OrderResult, error)
}

// SessionReader exposes session views
type SessionReader interface {
	GetSessionView(ctx context.Context, lookup tabapp.SessionLookup) (*tabapp.SessionView, error)
	ListActiveSessions(ctx context.Context) ([]tabapp.SessionResponse, error)
}

// SessionCloser closes sessions
type SessionCloser interface {
	CloseSession(ctx context.Context, req tabapp.CloseRequest) (*tabapp.CloseResult, error)
}

// SessionCheckout charges a session through the POS
type SessionCheckout interface {
	CheckoutSession(ctx context.Context, sessionID, sourceID string) (*tabapp.CheckoutResult, error)
}

// OccupantRegistry registers guests staying in a room
type OccupantRegistry interface {
	RegisterOccupant(ctx context.Context, roomID string, req tabapp.RegisterOccupantRequest) (*tabapp.OccupantResponse, error)
	ListOccupants(ctx context.Context, roomID string) ([]tabapp.OccupantResponse, error)
}
