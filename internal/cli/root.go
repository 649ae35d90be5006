// Package cli defines the studypact command tree.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/api"
	"github.com/studypact/studypact/internal/app/tracker"
	"github.com/studypact/studypact/internal/daemon"
	"github.com/studypact/studypact/internal/domain"
	"github.com/studypact/studypact/internal/infra/sqlite"
	"github.com/studypact/studypact/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "studypact",
	Short: "Two-person accountability tracker",
	Long: `studypact tracks weekly study goals, attendance against a fixed
schedule, and a shared points ledger that turns lateness, absences, and
late tasks into penalty points redeemable for money.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(balanceCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildService wires storage and the tracker engine from loaded config.
func buildService(cfg daemon.Config, log *zap.Logger) (*tracker.Service, *sqlite.DB, error) {
	sched, err := cfg.ParsedSchedule()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid schedule: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, nil, err
	}

	svc := tracker.New(db, tracker.Config{
		Users:            cfg.Pair(),
		Schedule:         sched,
		GraceMinutes:     cfg.Policy.GraceMinutes,
		BunkPenalty:      cfg.Policy.BunkPenaltyPoints,
		LatePointsPerDay: cfg.Policy.LatePointsPerDay,
	}, domain.SystemClock{}, log)
	return svc, db, nil
}

func newLogger(cfg daemon.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, logger.DefaultServiceName)
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	svc, db, err := buildService(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	server := api.NewServer(svc, cfg.Policy.PointsPerCurrency, log)
	if cfg.API.EnableMetrics {
		server.EnableMetrics()
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// ─── sweep ──────────────────────────────────────────────────────────────────

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one absence-sweep pass",
	Long: `Reconcile today's session window: once the grace window has elapsed,
any user without a check-in is marked as bunked and penalized. The sweep
also runs automatically before every API read, so this command is only
needed for cron-style setups without traffic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.Load(configPath)
		if err != nil {
			return err
		}
		svc, db, err := buildService(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := svc.Sweep(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "sweep complete")
		return nil
	},
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print both users' current point balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.Load(configPath)
		if err != nil {
			return err
		}
		svc, db, err := buildService(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer db.Close()

		for _, user := range cfg.Pair().Users() {
			balance, err := svc.Balance(user)
			if err != nil {
				return err
			}
			currency := int64(0)
			if cfg.Policy.PointsPerCurrency > 0 {
				currency = balance / cfg.Policy.PointsPerCurrency
			}
			fmt.Fprintf(os.Stdout, "%-12s %6d pts  (₹%d)\n", user, balance, currency)
		}
		return nil
	},
}
