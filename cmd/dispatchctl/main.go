package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"haulr-dispatch/internal/config"
	"haulr-dispatch/internal/dispatch"
	"haulr-dispatch/internal/lifecycle"
	"haulr-dispatch/internal/localstore"
	"haulr-dispatch/internal/reconcile"
	"haulr-dispatch/internal/remote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dispatchctl: %s\n", describe(err))
		os.Exit(1)
	}
}

// describe prefers the user-facing notice of a rejected transition
func describe(err error) string {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return te.Message()
	}
	return err.Error()
}

type rootOptions struct {
	configPath string
	serverURL  string
	dataPath   string
	offline    bool
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "dispatchctl",
		Short: "Dispatch console for routes, jobs and stops",
		Long: `dispatchctl keeps a local copy of the dispatch collections on this machine,
applies route, job and stop changes to it immediately, and syncs them with the
dispatch server in the background.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigPath, "Config file")
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Server URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.dataPath, "data", "", "Local database path (overrides config)")
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Work from the local copy without contacting the server")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show sync logs")

	cmd.AddCommand(
		newLoginCmd(opts),
		newPullCmd(opts),
		newPushCmd(opts),
		newStatusCmd(opts),
		newWatchCmd(opts),
		newRouteCmd(opts),
		newJobCmd(opts),
		newStopCmd(opts),
		newMileageCmd(opts),
		newMessageCmd(opts),
		newSettingsCmd(opts),
	)
	return cmd
}

// app is one opened device: config, local copy, backend client and the
// operations built on them
type app struct {
	cfg    config.Config
	local  localstore.Store
	client *remote.HTTPClient
	store  *reconcile.Store
	svc    *dispatch.Service
	out    io.Writer
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.serverURL != "" {
		cfg.ServerURL = o.serverURL
	}
	if o.dataPath != "" {
		cfg.DataPath = o.dataPath
	}
	return cfg, nil
}

func (o *rootOptions) newClient(cfg config.Config) (*remote.HTTPClient, error) {
	return remote.NewClient(cfg.ServerURL, remote.WithToken(cfg.Token))
}

func openApp(ctx context.Context, o *rootOptions, out io.Writer) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	local, err := localstore.OpenSQLite(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, local: local, out: out}
	var rc remote.Client
	if !o.offline {
		a.client, err = o.newClient(cfg)
		if err != nil {
			local.Close()
			return nil, err
		}
		rc = a.client
	}

	a.store = reconcile.New(local, rc, reconcile.Options{PollInterval: cfg.PollInterval, DisableRefetch: true})
	a.store.Load(ctx)
	a.svc = dispatch.New(a.store)
	return a, nil
}

// close waits for background syncs and reports what is still unacknowledged
func (a *app) close() {
	a.store.Close()
	if pending := a.store.Status().Pending; len(pending) > 0 {
		fmt.Fprintf(a.out, "⚠️  not yet synced: %v (will retry on next run)\n", pending)
	}
	a.local.Close()
}

// withApp opens the device, refreshes it from the server unless offline, runs
// fn, and waits for the resulting syncs before returning
func withApp(o *rootOptions, fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, o, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close()

		if a.client != nil {
			if err := a.store.PullAll(ctx); err != nil {
				fmt.Fprintf(a.out, "⚠️  working offline: %v\n", err)
			}
		}
		return fn(ctx, a, cmd, args)
	}
}

func (a *app) actor() (string, error) {
	if a.cfg.ActorID == "" {
		return "", errors.New("no actor id configured; run dispatchctl login first")
	}
	return a.cfg.ActorID, nil
}
