package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"haulr-dispatch/internal/models"
)

func newRouteCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Build, dispatch and close job routes",
	}

	var date string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a planned route",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			route, err := a.svc.CreateRoute(ctx, args[0], date)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Created route %s\n", route.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&date, "date", "", "Service date (YYYY-MM-DD)")

	addJob := &cobra.Command{
		Use:   "add-job ROUTE JOB",
		Short: "Append a job to a route",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			reopened, err := a.svc.AddJobToRoute(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Added %s to %s\n", args[1], args[0])
			if reopened {
				fmt.Fprintln(a.out, "   Route was completed and is back in progress")
			}
			return nil
		}),
	}

	var driverID, truckID string
	dispatchCmd := &cobra.Command{
		Use:   "dispatch ROUTE",
		Short: "Assign a driver and truck and dispatch the route",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.svc.DispatchRoute(ctx, args[0], driverID, truckID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "🚚 Dispatched %s to %s\n", args[0], driverID)
			return nil
		}),
	}
	dispatchCmd.Flags().StringVar(&driverID, "driver", "", "Driver id")
	dispatchCmd.Flags().StringVar(&truckID, "truck", "", "Truck id")
	dispatchCmd.MarkFlagRequired("driver")
	dispatchCmd.MarkFlagRequired("truck")

	start := &cobra.Command{
		Use:   "start ROUTE",
		Short: "Mark a dispatched route in progress",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.svc.StartRoute(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Started %s\n", args[0])
			return nil
		}),
	}

	complete := &cobra.Command{
		Use:   "complete ROUTE",
		Short: "Complete a route whose jobs are all done",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.svc.CompleteRoute(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Completed %s\n", args[0])
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List routes",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDATE\tSTATUS\tDRIVER\tJOBS")
			for _, r := range a.store.Routes.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.Name, r.Date, r.Status, deref(r.DriverID), len(r.JobIDs))
			}
			return w.Flush()
		}),
	}

	cmd.AddCommand(create, addJob, dispatchCmd, start, complete, list)
	return cmd
}

func newJobCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Create jobs and move them through their lifecycle",
	}

	var job models.Job
	create := &cobra.Command{
		Use:   "create CUSTOMER",
		Short: "Create a planned job for a customer",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if _, ok := a.store.Customers.Find(args[0]); !ok {
				return fmt.Errorf("customer %s: %w", args[0], models.ErrNotFound)
			}
			job.CustomerID = args[0]
			created, err := a.svc.CreateJob(ctx, job)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Created job %s\n", created.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&job.Type, "type", "delivery", "Job type: delivery, swap, pickup or dump-and-return")
	create.Flags().StringVar(&job.ScheduledDate, "date", "", "Scheduled date (YYYY-MM-DD)")
	create.Flags().StringVar(&job.Notes, "notes", "", "Notes for the driver")

	simple := func(use, short, done string, fn func(context.Context, *app, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " JOB",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				if err := fn(ctx, a, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✅ %s %s\n", done, args[0])
				return nil
			}),
		}
	}

	start := simple("start", "Start an assigned job", "Started", func(ctx context.Context, a *app, id string) error {
		return a.svc.StartJob(ctx, id)
	})
	dump := simple("dump", "Record arrival at the dump", "At dump:", func(ctx context.Context, a *app, id string) error {
		return a.svc.ArriveAtDump(ctx, id)
	})
	resume := simple("resume", "Resume a suspended job", "Resumed", func(ctx context.Context, a *app, id string) error {
		return a.svc.ResumeJob(ctx, id)
	})

	var reason string
	suspend := &cobra.Command{
		Use:   "suspend JOB",
		Short: "Suspend a job with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.svc.SuspendJob(ctx, args[0], reason); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "⏸️  Suspended %s\n", args[0])
			return nil
		}),
	}
	suspend.Flags().StringVar(&reason, "reason", "", "Why the job is suspended")
	suspend.MarkFlagRequired("reason")

	complete := &cobra.Command{
		Use:   "complete JOB",
		Short: "Complete a job",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			routeDone, err := a.svc.CompleteJob(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Completed %s\n", args[0])
			if routeDone {
				fmt.Fprintln(a.out, "🏁 That was the last job; route completed")
			}
			return nil
		}),
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			want := models.JobStatus(strings.ToUpper(status))
			jobs := a.store.Jobs.Filter(func(j models.Job) bool {
				return status == "" || j.Status == want
			})
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCUSTOMER\tTYPE\tSTATUS\tROUTE\tDATE")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", j.ID, j.CustomerID, j.Type, j.Status, deref(j.RouteID), j.ScheduledDate)
			}
			return w.Flush()
		}),
	}
	list.Flags().StringVar(&status, "status", "", "Only jobs with this status")

	cmd.AddCommand(create, start, dump, suspend, resume, complete, list)
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
