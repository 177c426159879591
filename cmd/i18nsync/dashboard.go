package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gpml/i18nsync/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "inspect",
	Short:   "Start the WebSocket dashboard without watching",
	Long: `Start a WebSocket dashboard server that reports record store statistics.

Clients receive a stats message on connect. Live record_update,
sync_complete and failure messages are only produced by 'i18nsync watch
--dashboard'.

Example usage:
  i18nsync dashboard                   # Start on the configured port
  i18nsync dashboard --port 9000       # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		database := openStore(cfg)
		defer database.Close()

		logger := newLogger("[dashboard] ", false)
		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logger,
		})
		dashboard.NewHandler(server, database, logger)

		if err := server.Start(); err != nil {
			exitf("failed to start dashboard: %v", err)
		}

		fmt.Printf("Dashboard server started on %s\n", server.GetAddr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", server.GetAddr())
		fmt.Printf("Health check: http://%s/health\n", server.GetAddr())
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			exitf("during shutdown: %v", err)
		}

		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides dashboard.port)")
	rootCmd.AddCommand(dashboardCmd)
}
