package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"haulr-dispatch/internal/config"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
)

func newLoginCmd(o *rootOptions) *cobra.Command {
	var req remote.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token in the config file",
		Example: `  dispatchctl login --username mike --pin 1234
  dispatchctl login --qr drv-mike-7f3a
  dispatchctl login --email dispatch@haulr.example --password admin123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Username == "" && req.QRToken == "" && req.Email == "" {
				return errors.New("one of --username, --qr or --email is required")
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			client, err := o.newClient(cfg)
			if err != nil {
				return err
			}

			resp, err := client.Login(cmd.Context(), req)
			if err != nil {
				var statusErr *remote.StatusError
				if errors.As(err, &statusErr) && statusErr.Status == 401 {
					return errors.New("login rejected: check your credentials")
				}
				return err
			}
			if !resp.OK {
				return errors.New("login rejected: check your credentials")
			}
			if err := config.SaveToken(o.configPath, resp.Token, resp.UserID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Signed in as %s (%s)\n", resp.Name, resp.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "Driver username")
	cmd.Flags().StringVar(&req.Pin, "pin", "", "Driver PIN")
	cmd.Flags().StringVar(&req.QRToken, "qr", "", "Driver badge or dispatcher QR token")
	cmd.Flags().StringVar(&req.Email, "email", "", "Dispatcher email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Dispatcher password")
	return cmd
}

func newPullCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch every collection from the server",
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return errors.New("pull needs the server; drop --offline")
			}
			if err := a.store.Status().LastError; err != nil {
				return err
			}
			printCounts(a, models.SyncedCollections)
			return nil
		}),
	}
}

func newPushCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload every synced collection in one request",
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return errors.New("push needs the server; drop --offline")
			}
			if err := a.store.PushAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Pushed %d collections\n", len(models.SyncedCollections))
			return nil
		}),
	}
}

func newStatusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and local collection sizes",
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			st := a.store.Status()
			state := "online"
			switch {
			case a.client == nil:
				state = "offline (--offline)"
			case st.LastError != nil:
				state = "offline: " + st.LastError.Error()
			}
			fmt.Fprintf(a.out, "Server:    %s (%s)\n", a.cfg.ServerURL, state)
			if st.LastSync.IsZero() {
				fmt.Fprintln(a.out, "Last sync: never")
			} else {
				fmt.Fprintf(a.out, "Last sync: %s\n", st.LastSync.Local().Format(time.RFC1123))
			}
			if len(st.Pending) > 0 {
				fmt.Fprintf(a.out, "Pending:   %v\n", st.Pending)
			}
			fmt.Fprintln(a.out)
			printCounts(a, append(append([]models.Collection{}, models.SyncedCollections...), models.LocalOnlyCollections...))
			return nil
		}),
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the local copy current until interrupted",
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return errors.New("watch needs the server; drop --offline")
			}
			a.store.Start(ctx)
			go a.client.Watch(ctx, func(cols []models.Collection) {
				fmt.Fprintf(a.out, "%s  server changed %v\n", time.Now().Format("15:04:05"), cols)
				a.store.Refresh()
			})

			fmt.Fprintf(a.out, "Watching %s every %s (Ctrl-C to stop)\n", a.cfg.ServerURL, a.cfg.PollInterval)
			ticker := time.NewTicker(a.cfg.PollInterval)
			defer ticker.Stop()
			wasOffline := false
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					st := a.store.Status()
					if st.IsOffline() != wasOffline {
						wasOffline = st.IsOffline()
						if wasOffline {
							fmt.Fprintf(a.out, "%s  ⚠️  offline: %v\n", time.Now().Format("15:04:05"), st.LastError)
						} else {
							fmt.Fprintf(a.out, "%s  ✅ back online\n", time.Now().Format("15:04:05"))
						}
					}
				}
			}
		}),
	}
}

func printCounts(a *app, names []models.Collection) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tRECORDS")
	for _, name := range names {
		c, ok := a.store.Collection(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", c.Name(), c.Len())
	}
	w.Flush()
}
