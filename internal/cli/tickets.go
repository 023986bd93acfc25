package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/service"
)

const cliTimeLayout = "2006-01-02 15:04"

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTicketsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect stored tickets",
	}
	cmd.AddCommand(newTicketsListCommand(a), newTicketsShowCommand(a))
	return cmd
}

func newTicketsListCommand(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			manager := service.NewTicketManager(service.TicketDependencies{
				Store:  stores.store,
				Kinds:  a.cfg.Kinds,
				Logger: a.logger,
			}, managerConfig(a.cfg))
			tickets, err := manager.List(ctx, domain.TicketStatus(strings.ToLower(status)))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tickets) == 0 {
				fmt.Fprintln(out, "No tickets found.")
				return nil
			}
			renderTicketTable(out, tickets)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open or closed)")
	return cmd
}

func newTicketsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid ticket id %q", args[0])
			}
			ctx := cmd.Context()
			stores, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			ticket, err := stores.store.Get(ctx, id)
			if err != nil {
				return err
			}
			history, err := stores.history.ListByTicket(ctx, id)
			if err != nil {
				return err
			}
			renderTicket(cmd.OutOrStdout(), ticket, history)
			return nil
		},
	}
}

func renderTicketTable(w io.Writer, tickets []domain.Ticket) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("ID", "KIND", "STATUS", "CREATOR", "CLAIMED BY", "CREATED")
	for _, ticket := range tickets {
		t.Row(
			strconv.FormatInt(ticket.ID, 10),
			string(ticket.Kind),
			string(ticket.Status),
			ticket.CreatorRef,
			deref(ticket.ClaimedBy),
			ticket.CreatedAt.UTC().Format(cliTimeLayout),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderTicket(w io.Writer, ticket *domain.Ticket, history []domain.HistoryEntry) {
	rows := [][2]string{
		{"ID", strconv.FormatInt(ticket.ID, 10)},
		{"Kind", string(ticket.Kind)},
		{"Status", string(ticket.Status)},
		{"Channel", ticket.ChannelRef},
		{"Creator", ticket.CreatorRef},
		{"Created", ticket.CreatedAt.UTC().Format(cliTimeLayout)},
		{"Claimed by", deref(ticket.ClaimedBy)},
		{"Closed by", deref(ticket.ClosedBy)},
		{"Close reason", deref(ticket.CloseReason)},
		{"Transcript", ticket.TranscriptURL},
	}
	if ticket.ClosedAt != nil {
		rows = append(rows, [2]string{"Closed", ticket.ClosedAt.UTC().Format(cliTimeLayout)})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-13s", row[0]+":")), row[1])
	}
	for _, key := range slices.Sorted(maps.Keys(ticket.IntakeData)) {
		fmt.Fprintf(w, "  %s: %s\n", key, ticket.IntakeData[key])
	}
	if len(history) == 0 {
		return
	}
	fmt.Fprintln(w, headerStyle.Render("History:"))
	for _, entry := range history {
		fmt.Fprintf(w, "  %s  %-28s %s\n", entry.At.UTC().Format(cliTimeLayout), entry.Event, entry.ActorRef)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
