package notification

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roomtab/backend/internal/domain/tab"
)

const transcriptTimeLayout = "2006-01-02 15:04"

// transcript renders monospace staff texts. Columns are aligned with tabwriter.
type transcript struct {
	taxRate decimal.Decimal
	loc     *time.Location
}

func yen(d decimal.Decimal) string {
	return d.StringFixed(0)
}

func newTabWriter(b *strings.Builder) *tabwriter.Writer {
	return tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
}

// orderCreated renders the new order, then a replay of the session's earlier
// orders and the running session totals
func (t transcript) orderCreated(session *tab.OrderSession, order *tab.Order, history []tab.Order, running decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[NEW ORDER] Room %s\n", order.RoomID)
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	if order.GuestName != "" {
		fmt.Fprintf(&b, "Guest: %s\n", order.GuestName)
	}
	fmt.Fprintf(&b, "Time: %s\n", order.CreatedAt.In(t.loc).Format(transcriptTimeLayout))
	if order.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", order.Note)
	}
	b.WriteString("\n")

	t.writeLines(&b, order.Lines)
	totals := tab.ComputeTotals(order.TotalAmount, t.taxRate)
	t.writeTotals(&b, "Order", totals)

	if len(history) > 0 {
		b.WriteString("\n-- Earlier orders this session --\n")
		for _, prev := range history {
			fmt.Fprintf(&b, "%s\n", prev.CreatedAt.In(t.loc).Format(transcriptTimeLayout))
			t.writeLines(&b, prev.Lines)
		}
	}

	b.WriteString("\n")
	t.writeTotals(&b, "Session", tab.ComputeTotals(running, t.taxRate))
	return strings.TrimRight(b.String(), "\n")
}

func (t transcript) writeLines(b *strings.Builder, lines []tab.OrderLine) {
	w := newTabWriter(b)
	for _, l := range lines {
		fmt.Fprintf(w, "%s\tx%d\t%s\t\n", l.ProductName, l.Quantity, yen(l.Subtotal))
		if l.Note != "" {
			fmt.Fprintf(w, "  (%s)\t\t\t\n", l.Note)
		}
	}
	_ = w.Flush()
}

func (t transcript) writeTotals(b *strings.Builder, label string, totals tab.Totals) {
	w := newTabWriter(b)
	fmt.Fprintf(w, "%s subtotal\t%s\t\n", label, yen(totals.Subtotal))
	fmt.Fprintf(w, "Tax\t%s\t\n", yen(totals.Tax))
	fmt.Fprintf(w, "%s total\t%s\t\n", label, yen(totals.Total))
	_ = w.Flush()
}

// sessionClosed renders the close summary
func (t transcript) sessionClosed(session *tab.OrderSession, kind tab.SessionStatus, running decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[SESSION CLOSED] Room %s\n", session.RoomID)
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Close type: %s\n", kind)
	closedAt := time.Now()
	if session.ClosedAt != nil {
		closedAt = *session.ClosedAt
	}
	fmt.Fprintf(&b, "Time: %s\n\n", closedAt.In(t.loc).Format(transcriptTimeLayout))
	t.writeTotals(&b, "Session", tab.ComputeTotals(running, t.taxRate))
	return strings.TrimRight(b.String(), "\n")
}

// priceMismatch renders the error channel alert
func (t transcript) priceMismatch(session *tab.OrderSession, expected, actual decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[PRICE MISMATCH] Room %s\n", session.RoomID)
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	w := newTabWriter(&b)
	fmt.Fprintf(w, "Expected\t%s\t\n", yen(expected))
	fmt.Fprintf(w, "POS shows\t%s\t\n", yen(actual))
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
