package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"haulr-dispatch/internal/models"
)

func newMileageCmd(o *rootOptions) *cobra.Command {
	var driverID, truckID, date string
	cmd := &cobra.Command{
		Use:   "mileage",
		Short: "Log the miles a driver covered on a day from GPS breadcrumbs",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			day, err := time.ParseInLocation("2006-01-02", date, time.Local)
			if err != nil {
				return models.Invalid("--date must be YYYY-MM-DD")
			}
			from := day.UnixMilli()
			to := day.AddDate(0, 0, 1).UnixMilli() - 1

			entry, err := a.svc.LogMileage(ctx, driverID, truckID, date, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ %s drove %.1f miles on %s\n", driverID, entry.Miles, date)
			return nil
		}),
	}
	cmd.Flags().StringVar(&driverID, "driver", "", "Driver id")
	cmd.Flags().StringVar(&truckID, "truck", "", "Truck id")
	cmd.Flags().StringVar(&date, "date", time.Now().Format("2006-01-02"), "Day to total (YYYY-MM-DD)")
	cmd.MarkFlagRequired("driver")
	cmd.MarkFlagRequired("truck")
	return cmd
}

func newMessageCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "message TO BODY...",
		Short: "Send a message to a driver or dispatcher",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			from, err := a.actor()
			if err != nil {
				return err
			}
			msg, err := a.svc.SendMessage(ctx, from, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✉️  Sent %s to %s\n", msg.ID, args[0])
			return nil
		}),
	}
}

func newSettingsCmd(o *rootOptions) *cobra.Command {
	var qrToken, reportEmail string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the dispatcher settings",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("qr") || flags.Changed("report-email") {
				var u models.DispatcherSettingsUpdate
				if flags.Changed("qr") {
					u.QRToken = &qrToken
				}
				if flags.Changed("report-email") {
					u.ReportEmail = &reportEmail
				}
				if _, err := a.store.UpdateSettings(ctx, u); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "✅ Settings updated")
			}

			settings, ok := a.store.Settings()
			if !ok {
				return errors.New("no dispatcher settings yet; set --qr or --report-email")
			}
			fmt.Fprintf(a.out, "QR token:     %s\n", mask(settings.QRToken))
			fmt.Fprintf(a.out, "Report email: %s\n", settings.ReportEmail)
			return nil
		}),
	}
	cmd.Flags().StringVar(&qrToken, "qr", "", "Dispatcher QR login token")
	cmd.Flags().StringVar(&reportEmail, "report-email", "", "Where end-of-day reports are sent")
	return cmd
}

func mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
