package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/bootstrap"
	"github.com/roomtab/backend/internal/domain/tab"
)

func failingOpener(t *testing.T) opener {
	return func(context.Context) (*bootstrap.Container, error) {
		t.Fatal("the container must not be opened")
		return nil, nil
	}
}

func TestCloseCmd_RequiresReference(t *testing.T) {
	cmd := closeCmd(failingOpener(t))
	cmd.SetArgs([]string{"--force"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--session or --room")
}

func TestShowCmd_PropagatesOpenError(t *testing.T) {
	cmd := showCmd(func(context.Context) (*bootstrap.Container, error) {
		return nil, errors.New("database unreachable")
	})
	cmd.SetArgs([]string{"--room", "fg#11"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	assert.EqualError(t, err, "database unreachable")
}

func TestRenderSessionView(t *testing.T) {
	opened := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	view := &tabapp.SessionView{
		Session: tabapp.SessionResponse{
			ID: "260101120000123abcdef", RoomID: "fg#11", Status: "active",
			MirrorItemID: "ITEM1", MirrorVariationID: "VAR1", OpenedAt: opened,
		},
		Orders: []tabapp.OrderResponse{{
			Status:    "OPEN",
			CreatedAt: opened,
			Lines: []tabapp.OrderLineResponse{{
				ProductName: "Beer", Quantity: 20,
				UnitPrice: decimal.NewFromInt(1000), Subtotal: decimal.NewFromInt(20000),
			}},
		}},
		Totals: tab.ComputeTotals(decimal.NewFromInt(20000), tab.DefaultTaxRate),
	}

	var out bytes.Buffer
	require.NoError(t, renderSessionView(&out, view))
	assert.Contains(t, out.String(), "fg#11")
	assert.Contains(t, out.String(), "VAR1")
	assert.Contains(t, out.String(), "Beer")
	assert.Contains(t, out.String(), "Total 22000")
}

func TestRenderSessions_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderSessions(&out, nil))
	assert.Equal(t, "No open sessions\n", out.String())
}
