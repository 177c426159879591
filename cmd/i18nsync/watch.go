package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gpml/i18nsync/internal/daemon"
	"github.com/gpml/i18nsync/internal/dashboard"
	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Watch every source and keep the record store in sync (foreground)",
	Long: `Run one sync daemon per configured source until interrupted.

Each daemon:
  1. Performs a full sync of its source directory
  2. Prunes records whose files were removed while it was not running
  3. Watches the directory tree for changes
  4. Re-reconciles changed files after the debounce interval

With --dashboard, record changes, sync summaries and failures are also
broadcast over WebSocket (ws://localhost:<port>/ws).`,
	Run: func(cmd *cobra.Command, args []string) {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		cfg := loadConfig()
		if cmd.Flags().Changed("port") {
			cfg.Dashboard.Port, _ = cmd.Flags().GetInt("port")
		}

		database := openStore(cfg)
		defer database.Close()

		var (
			sink      reconcile.Sink = database
			handler   *dashboard.Handler
			server    *dashboard.Server
			onFailure func(*reconcile.Failure)
		)
		if withDashboard {
			logger := newLogger("[dashboard] ", false)
			server = dashboard.NewServer(&dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: logger,
			})
			handler = dashboard.NewHandler(server, database, logger)
			sink = dashboard.NewSink(database, handler)
			onFailure = handler.OnFailure

			if err := server.Start(); err != nil {
				exitf("failed to start dashboard: %v", err)
			}
			defer server.Stop()
		}

		recs, err := newReconcilers(cfg, sink, onFailure)
		if err != nil {
			exitf("%v", err)
		}

		daemons := make([]*daemon.Daemon, 0, len(recs))
		for _, rec := range recs {
			dc := &daemon.Config{
				DebounceInterval: cfg.Debounce,
				Workers:          cfg.Workers,
				Querier:          database,
				Logger:           newLogger(fmt.Sprintf("[daemon:%s] ", rec.Namespace()), false),
			}
			if handler != nil {
				ns := rec.Namespace()
				dc.OnFullSync = func(s reconcile.Summary, d time.Duration) { handler.OnFullSync(ns, s, d) }
				dc.OnSync = func(res reconcile.Result, err error) { handler.OnFileSynced(ns, res, err) }
			}
			d, err := daemon.NewWithConfig(rec, dc)
			if err != nil {
				exitf("creating daemon for %s: %v", rec.Namespace(), err)
			}
			daemons = append(daemons, d)
		}

		fmt.Printf("%s Starting sync daemons...\n", ui.RenderAccent("→"))
		for _, rec := range recs {
			fmt.Printf("   %s (%s): %s\n", rec.Namespace(), rec.Kind(), rec.Root())
		}
		fmt.Printf("   Store: %s\n", cfg.Database)
		if server != nil {
			fmt.Printf("   Dashboard: ws://%s/ws\n", server.GetAddr())
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		for _, d := range daemons {
			g.Go(func() error { return d.Start(gctx) })
		}
		if err := g.Wait(); err != nil {
			for _, d := range daemons {
				_ = d.Stop()
			}
			exitf("daemon stopped with error: %v", err)
		}

		fmt.Printf("%s Stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "serve the WebSocket dashboard while watching")
	watchCmd.Flags().IntP("port", "p", 8080, "dashboard port (overrides dashboard.port)")
	rootCmd.AddCommand(watchCmd)
}
