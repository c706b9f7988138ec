package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/bootstrap"
)

func closeCmd(open opener) *cobra.Command {
	var req tabapp.CloseRequest
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a session by id or by room number",
		Long: "Close resolves the session status from POS payments: Completed when a payment\n" +
			"references the session, Pending_payment otherwise. --force closes as Force_closed\n" +
			"and archives the session's POS item.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.SessionID == "" && req.RoomID == "" {
				return errors.New("one of --session or --room is required")
			}
			return withContainer(cmd.Context(), open, func(c *bootstrap.Container) error {
				result, err := c.Closer.CloseSession(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (room %s): %s, %d orders completed\n",
					result.SessionID, result.RoomID, result.Status, result.OrdersCompleted)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.SessionID, "session", "s", "", "Session id")
	cmd.Flags().StringVarP(&req.RoomID, "room", "r", "", "Room number (closes its active session)")
	cmd.Flags().BoolVarP(&req.Force, "force", "f", false, "Force close and archive the POS item")
	return cmd
}

func showCmd(open opener) *cobra.Command {
	var lookup tabapp.SessionLookup
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a session with its orders and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lookup.SessionID == "" && lookup.RoomID == "" {
				return errors.New("one of --session or --room is required")
			}
			return withContainer(cmd.Context(), open, func(c *bootstrap.Container) error {
				view, err := c.Sessions.GetSessionView(cmd.Context(), lookup)
				if err != nil {
					return err
				}
				return renderSessionView(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().StringVarP(&lookup.SessionID, "session", "s", "", "Session id")
	cmd.Flags().StringVarP(&lookup.RoomID, "room", "r", "", "Room number (shows its active session)")
	return cmd
}

func listCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), open, func(c *bootstrap.Container) error {
				sessions, err := c.Sessions.ListActiveSessions(cmd.Context())
				if err != nil {
					return err
				}
				return renderSessions(cmd.OutOrStdout(), sessions)
			})
		},
	}
}

func renderSessionView(w io.Writer, view *tabapp.SessionView) error {
	s := view.Session
	fmt.Fprintf(w, "Session %s  room %s  status %s  opened %s\n",
		s.ID, s.RoomID, s.Status, s.OpenedAt.Format("2006-01-02 15:04"))
	if s.MirrorItemID != "" {
		fmt.Fprintf(w, "POS item %s / variation %s\n", s.MirrorItemID, s.MirrorVariationID)
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Ordered", "Item", "Qty", "Price", "Subtotal", "Status"})
	for _, o := range view.Orders {
		for _, l := range o.Lines {
			if err := table.Append([]string{
				o.CreatedAt.Format("15:04"), l.ProductName, fmt.Sprint(l.Quantity),
				l.UnitPrice.String(), l.Subtotal.String(), o.Status,
			}); err != nil {
				return err
			}
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Subtotal %s  Tax %s  Total %s\n",
		view.Totals.Subtotal, view.Totals.Tax, view.Totals.Total)
	return nil
}

func renderSessions(w io.Writer, sessions []tabapp.SessionResponse) error {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No open sessions")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Session", "Room", "Opened", "POS item"})
	for _, s := range sessions {
		if err := table.Append([]string{s.ID, s.RoomID, s.OpenedAt.Format("2006-01-02 15:04"), s.MirrorItemID}); err != nil {
			return err
		}
	}
	return table.Render()
}
