package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"haulr-dispatch/internal/lifecycle"
	"haulr-dispatch/internal/models"
)

const kindHelp = "KIND is container, residential or commercial"

func parseStopKind(s string) (lifecycle.Kind, error) {
	kind, err := lifecycle.ParseKind(strings.ToLower(s))
	if err != nil {
		return "", err
	}
	if kind == lifecycle.KindRoute {
		return "", models.Invalid("job routes are managed with dispatchctl route")
	}
	return kind, nil
}

func newStopCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Work container, residential and commercial stop routes",
		Long: `Stop routes are kept on this device only. ` + kindHelp + `.`,
	}

	var date string
	routeCreate := &cobra.Command{
		Use:   "route-create KIND NAME",
		Short: "Create a planned stop route",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			kind, err := parseStopKind(args[0])
			if err != nil {
				return err
			}
			route, err := a.svc.CreateStopRoute(ctx, kind, args[1], date)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Created %s route %s\n", kind, route.ID)
			return nil
		}),
	}
	routeCreate.Flags().StringVar(&date, "date", "", "Service date (YYYY-MM-DD)")

	var stop models.Stop
	add := &cobra.Command{
		Use:   "add KIND ROUTE ADDRESS",
		Short: "Append a pending stop to a stop route",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			kind, err := parseStopKind(args[0])
			if err != nil {
				return err
			}
			stop.Address = args[2]
			created, reopened, err := a.svc.AddStopToRoute(ctx, kind, args[1], stop)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Added stop %s (#%d)\n", created.ID, created.Sequence)
			if reopened {
				fmt.Fprintln(a.out, "   Route was completed and is back in progress")
			}
			return nil
		}),
	}
	add.Flags().StringVar(&stop.CustomerID, "customer", "", "Customer id")

	var outcome lifecycle.Outcome
	var status string
	record := &cobra.Command{
		Use:   "outcome KIND STOP",
		Short: "Record the outcome of a stop",
		Example: `  dispatchctl stop outcome residential stop-42 --status COMPLETED
  dispatchctl stop outcome residential stop-43 --status NOT_OUT --photo cans.jpg`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			kind, err := parseStopKind(args[0])
			if err != nil {
				return err
			}
			actor, err := a.actor()
			if err != nil {
				return err
			}
			outcome.Status = models.StopStatus(strings.ToUpper(status))
			outcome.ActorID = actor
			routeDone, err := a.svc.RecordStopOutcome(ctx, kind, args[1], outcome)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ %s marked %s\n", args[1], outcome.Status)
			if routeDone {
				fmt.Fprintln(a.out, "🏁 That was the last stop; route completed")
			}
			return nil
		}),
	}
	record.Flags().StringVar(&status, "status", "", "COMPLETED, NOT_OUT, BLOCKED or SKIPPED")
	record.Flags().StringVar(&outcome.Notes, "notes", "", "Notes")
	record.Flags().StringSliceVar(&outcome.Photos, "photo", nil, "Photo reference (repeatable)")
	record.MarkFlagRequired("status")

	advance := &cobra.Command{
		Use:       "advance KIND ROUTE STATUS",
		Short:     "Move a stop route to DISPATCHED, IN_PROGRESS or COMPLETED",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"DISPATCHED", "IN_PROGRESS", "COMPLETED"},
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			kind, err := parseStopKind(args[0])
			if err != nil {
				return err
			}
			to := models.RouteStatus(strings.ToUpper(args[2]))
			if err := a.svc.AdvanceStopRoute(ctx, kind, args[1], to); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ %s is now %s\n", args[1], to)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list KIND",
		Short: "List stop routes of one kind",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			kind, err := parseStopKind(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDATE\tSTATUS\tSTOPS")
			for _, r := range a.stopRoutes(kind) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.ID, r.Name, r.Date, r.Status, len(r.StopIDs))
			}
			return w.Flush()
		}),
	}

	cmd.AddCommand(routeCreate, add, record, advance, list)
	return cmd
}

func (a *app) stopRoutes(kind lifecycle.Kind) []models.StopRoute {
	var out []models.StopRoute
	switch kind {
	case lifecycle.KindContainer:
		for _, r := range a.store.ContainerRoutes.All() {
			out = append(out, r.StopRoute)
		}
	case lifecycle.KindResidential:
		for _, r := range a.store.ResidentialRoutes.All() {
			out = append(out, r.StopRoute)
		}
	case lifecycle.KindCommercial:
		for _, r := range a.store.CommercialRoutes.All() {
			out = append(out, r.StopRoute)
		}
	}
	return out
}
