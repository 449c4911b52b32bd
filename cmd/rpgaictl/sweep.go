package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	storepkg "github.com/Yashasrn33/RPGAI/internal/store"
	"github.com/Yashasrn33/RPGAI/internal/store/postgres"
	"github.com/Yashasrn33/RPGAI/internal/store/sqlite"
)

func init() {
	var dbPath, dsn string
	var olderThan time.Duration
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete memories older than a retention window (offline, opens the database directly)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			var st storepkg.MemoryStore
			var err error
			switch {
			case dsn != "":
				st, err = postgres.New(dsn)
			case dbPath != "":
				st, err = sqlite.New(dbPath)
			default:
				return fmt.Errorf("--db or --dsn required")
			}
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			purged, err := st.PurgeOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "purged %d memories older than %s\n", purged, olderThan)
			return nil
		},
	}
	sweepCmd.Flags().StringVar(&dbPath, "db", "npc_memory.db", "SQLite database path")
	sweepCmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (takes precedence over --db)")
	sweepCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Retention window, e.g. 720h")
	rootCmd.AddCommand(sweepCmd)
}
