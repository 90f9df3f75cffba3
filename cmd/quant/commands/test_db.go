package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection",
	Long: `Connects to DATABASE_URL, pings it, applies the schema and shows
connection pool statistics.

Example:
  go run ./cmd/quant test-db
  go run ./cmd/quant test-db --config .env.production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Database Connection Test ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue(out, "Database URL", maskPassword(cfg.Database.URL), 12)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(out, "Database connection established")

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	PrintSuccess(out, "Ping successful")

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	PrintSuccess(out, "Schema up to date")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	PrintHeader(out, "Health Check")
	PrintKeyValue(out, "Healthy", fmt.Sprintf("%v", status.Healthy), 20)
	PrintKeyValue(out, "Response Time", status.ResponseTime.String(), 20)
	PrintKeyValue(out, "Timestamp", status.Timestamp.Format(time.RFC3339), 20)

	PrintHeader(out, "Connection Pool")
	PrintKeyValue(out, "Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 20)
	PrintKeyValue(out, "Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 20)
	PrintKeyValue(out, "Acquired", fmt.Sprintf("%d", status.Stats.AcquiredConns), 20)
	PrintKeyValue(out, "Idle", fmt.Sprintf("%d", status.Stats.IdleConns), 20)
	PrintKeyValue(out, "Acquire Count", fmt.Sprintf("%d", status.Stats.AcquireCount), 20)
	PrintKeyValue(out, "Acquire Duration", status.Stats.AcquireDuration.String(), 20)

	fmt.Fprintln(out)
	PrintSuccess(out, "All checks passed")
	return nil
}

// maskPassword hides the password in a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
