package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	tabapp "github.com/roomtab/backend/internal/application/tab"
)

// MockOrderCreator implements OrderCreator for testing
type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req tabapp.CreateOrderRequest) (*tabapp.OrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabapp.OrderResult), args.Error(1)
}

// MockSessionService implements SessionReader, SessionCloser and SessionCheckout for testing
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) GetSessionView(ctx context.Context, lookup tabapp.SessionLookup) (*tabapp.SessionView, error) {
	args := m.Called(ctx, lookup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabapp.SessionView), args.Error(1)
}

func (m *MockSessionService) ListActiveSessions(ctx context.Context) ([]tabapp.SessionResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabapp.SessionResponse), args.Error(1)
}

func (m *MockSessionService) CloseSession(ctx context.Context, req tabapp.CloseRequest) (*tabapp.CloseResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabapp.CloseResult), args.Error(1)
}

func (m *MockSessionService) CheckoutSession(ctx context.Context, sessionID, sourceID string) (*tabapp.CheckoutResult, error) {
	args := m.Called(ctx, sessionID, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabapp.CheckoutResult), args.Error(1)
}

// MockOccupantRegistry implements OccupantRegistry for testing
type MockOccupantRegistry struct {
	mock.Mock
}

func (m *MockOccupantRegistry) RegisterOccupant(ctx context.Context, roomID string, req tabapp.RegisterOccupantRequest) (*tabapp.OccupantResponse, error) {
	args := m.Called(ctx, roomID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabapp.OccupantResponse), args.Error(1)
}

func (m *MockOccupantRegistry) ListOccupants(ctx context.Context, roomID string) ([]tabapp.OccupantResponse, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabapp.OccupantResponse), args.Error(1)
}
