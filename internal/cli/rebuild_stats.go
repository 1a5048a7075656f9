package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-progression-service/internal/config"
	pgstore "quiz-progression-service/internal/infra/postgres"
)

// NewRebuildStatsCmd rebuilds a user's aggregate stats by replaying their
// attempt log. Use it when an aggregate is suspected of drifting from the
// log (after a migration, or to verify the incremental path).
func NewRebuildStatsCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "rebuild-stats",
		Short: "Rebuild a user's stats from the attempt log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runRebuildStats(cmd.Context(), *configPath, userID)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID whose stats to rebuild")
	return cmd
}

func runRebuildStats(ctx context.Context, configPath, userID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	ledger := pgstore.NewAttemptLedger(pool, cfg.Ledger.MaxRetries)
	stats, err := ledger.RebuildUserStats(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("rebuilt stats for %s: %d answered, %d correct, %d XP, level %d (%s)",
		userID, stats.TotalQuestionsAnswered, stats.TotalCorrectAnswers,
		stats.TotalXP, stats.CurrentLevel, stats.CurrentTitle)
	return nil
}
