package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/config"
	storepkg "github.com/Yashasrn33/RPGAI/internal/store"
	storepg "github.com/Yashasrn33/RPGAI/internal/store/postgres"
	storelite "github.com/Yashasrn33/RPGAI/internal/store/sqlite"
)

// NewStore builds the memory store selected by RPGAI_DB_DRIVER. The schema
// is created on open; both drivers are safe to reopen on an existing
// database.
func NewStore(cfg *config.Config, log zerolog.Logger) (storepkg.MemoryStore, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := storelite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("memory store ready")
		return st, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("RPGAI_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		st, err := storepg.New(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Str("driver", "postgres").Msg("memory store ready")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
