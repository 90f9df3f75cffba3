package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/api"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/api/handlers"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/scheduler"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	Long: `Starts the REST API and, when Postgres is configured, the scheduler.

Endpoints:
  GET  /health            - Health check
  POST /api/v1/optimize   - Full run (S0 → S4)
  POST /api/v1/simulate   - Monte Carlo projection
  POST /api/v1/frontier   - Efficient frontier points
  GET  /api/v1/runs       - Stored runs, newest first
  GET  /api/v1/runs/{id}  - One stored run

Scheduled jobs (Postgres only):
  price_refresh  - weekdays 17:30 New York, tops up stored prices
  run_retention  - Sundays 03:00, deletes old run reports

Example:
  go run ./cmd/quant serve
  go run ./cmd/quant serve --port 8080 --refresh AAPL,MSFT`,
	RunE: runServe,
}

var (
	servePort        string
	serveNoScheduler bool
	serveRefresh     []string
	serveRetention   time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default PORT)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "serve the API only")
	serveCmd.Flags().StringSliceVar(&serveRefresh, "refresh", nil, "symbols always included in the price refresh")
	serveCmd.Flags().DurationVar(&serveRetention, "retention", 90*24*time.Hour, "how long run reports are kept")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port":     a.cfg.Port,
		"env":      a.cfg.Env,
		"database": a.db != nil,
		"redis":    a.redis.Enabled(),
	}).Info("Initializing API server")

	var runs handlers.RunStore
	if store := a.runStore(); store != nil {
		runs = store
	}

	handler := handlers.NewPortfolioHandler(
		a.collector(),
		risk.NewProjector(a.cfg.MonteCarlo.Workers, log),
		runs,
		a.defaults(),
		log,
	)
	server := api.New(a.cfg, log, api.NewRouter(handler, log))

	var sched *scheduler.Scheduler
	if a.db != nil && !serveNoScheduler {
		if sched, err = newScheduler(a); err != nil {
			return err
		}
		sched.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	if sched != nil {
		for _, name := range sched.GetAllJobs() {
			PrintInfo(out, "Scheduled job: "+name)
		}
	}
	PrintInfo(out, "Press Ctrl+C to stop")

	select {
	case err := <-serverErr:
		if sched != nil {
			sched.Stop()
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// newScheduler registers the price refresh and run retention jobs
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	prices := marketdata.NewRepository(a.db.Pool)
	collector := marketdata.NewCollector(a.priceSource(), prices, a.log)

	refresh := jobs.DefaultPriceRefreshConfig()
	refresh.Symbols = serveRefresh
	refresh.Workers = a.cfg.MarketData.Workers

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewPriceRefreshJob(collector, prices, refresh, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewRunRetentionJob(a.runStore(), serveRetention, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}
