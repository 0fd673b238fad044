// Package objectives parses objectives command flags and starts the service.
package objectives

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/okr/internal/platform/cmd"
	server "github.com/louisbranch/okr/internal/services/objective/app"
)

// Config holds objectives command configuration.
type Config struct {
	Port            int    `env:"OKR_OBJECTIVES_PORT" envDefault:"8090"`
	Addr            string `env:"OKR_OBJECTIVES_ADDR"`
	DBPath          string `env:"OKR_OBJECTIVES_DB_PATH" envDefault:"data/objectives.db"`
	ConflictRetries int    `env:"OKR_OBJECTIVES_CONFLICT_RETRIES" envDefault:"2"`
	RebuildViews    bool   `env:"OKR_OBJECTIVES_REBUILD_VIEWS"`
	NoSnapshots     bool   `env:"OKR_OBJECTIVES_NO_SNAPSHOTS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The objectives server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The objectives server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the objectives sqlite database")
	fs.IntVar(&cfg.ConflictRetries, "conflict-retries", cfg.ConflictRetries, "Times a command is retried after an append conflict (negative disables)")
	fs.BoolVar(&cfg.RebuildViews, "rebuild-views", cfg.RebuildViews, "Rebuild objective views from the journal before serving")
	fs.BoolVar(&cfg.NoSnapshots, "no-snapshots", cfg.NoSnapshots, "Replay full streams instead of keeping in-memory snapshots")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the objectives service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceObjectives, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			Addr:            cfg.Addr,
			Port:            cfg.Port,
			DBPath:          cfg.DBPath,
			ConflictRetries: cfg.ConflictRetries,
			RebuildViews:    cfg.RebuildViews,
			NoSnapshots:     cfg.NoSnapshots,
		})
	})
}
