package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/accounts"
	"github.com/kozaktomas/spyhole/internal/database"
	"github.com/kozaktomas/spyhole/internal/logging"
	"github.com/kozaktomas/spyhole/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Spyhole web server.
Known faces are loaded from the known faces directory, then the server accepts
probe images on /upload and exposes the access log and account API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 5000, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = mustGetString(cmd, "host")
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Server.SessionSecret = secret
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Opening %s database...\n", database.BackendFor(&cfg.Database))
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = store.Close() }()

	svc, err := newMonitor(ctx, cfg, nil, logger, store.Accounts())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	fmt.Printf("Loading known faces from %s...\n", cfg.Storage.KnownDir)
	stats, err := svc.Bootstrap(ctx, cfg.Storage.KnownDir)
	if err != nil {
		return err
	}
	printLoadStats(stats)

	server := web.NewServer(cfg, svc, accounts.NewService(store.Accounts()), store.Sessions(), logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting Spyhole on http://%s (threshold %.2f)\n", server.Addr(), svc.Threshold())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
