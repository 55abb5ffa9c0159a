package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"tally/internal/app"
	"tally/internal/config"
	"tally/internal/logging"
	"tally/internal/storage"
	"tally/internal/ui"
)

type flags struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	LogFile    string
}

func main() {
	exitCode := 0
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}
	os.Exit(exitCode)
}

func newCommand() *cli.Command {
	f := &flags{}
	return &cli.Command{
		Name:      "tally",
		Usage:     "Keyboard-driven terminal task list",
		UsageText: "tally [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TALLY_CONFIG"),
				Value:       config.ResolveConfigPath(),
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path to task database (overrides db_path)",
				Sources:     cli.EnvVars("TALLY_DB"),
				Destination: &f.DBPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal)",
				Sources:     cli.EnvVars("TALLY_LOG_LEVEL"),
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (overrides log_file)",
				Sources:     cli.EnvVars("TALLY_LOG_FILE"),
				Destination: &f.LogFile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("unexpected argument %q. Run 'tally --help' for usage", c.Args().First())
			}
			return run(ctx, f)
		},
	}
}

func run(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer closeLog()

	store, state, err := openState(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("db", cfg.DBPath).Msg("store init failed")
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	if err := ui.Run(ctx, state, ui.NewKeyMap(cfg.Keys), logging.Component(logger, "ui")); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	logger.Info().Msg("clean exit")
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f *flags) (config.Config, error) {
	cfg, err := config.LoadOrCreate(f.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	return cfg, cfg.Validate()
}

func openState(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*storage.Store, *app.State, error) {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		switch {
		case storage.IsCorruptionError(err):
			return nil, nil, fmt.Errorf("%s is not a task database: %w", cfg.DBPath, err)
		case errors.Is(err, storage.ErrNotWritable):
			return nil, nil, fmt.Errorf("%s is not writable: %w", cfg.DBPath, err)
		case errors.Is(err, storage.ErrIncompatibleSchema):
			return nil, nil, fmt.Errorf("%s has an incompatible schema: %w", cfg.DBPath, err)
		}
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger.Info().Str("db", store.Path()).Msg("store opened")

	state, err := app.Load(ctx, store, logging.Component(logger, "app"))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, state, nil
}
