package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joao-fontenele/orderflow-checkout/internal/config"
)

const usage = "usage: migrate <up|down|steps N|force VERSION|version>"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		logger.Error(usage)
		os.Exit(1)
	}

	var cfg config.Migrate
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m, err := migrate.New(cfg.MigrationsPath, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to create migrate instance", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	m.Log = migrateLogger{logger: logger}

	if err := run(m, args, logger); err != nil {
		logger.Error("migration failed", slog.String("command", args[0]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, args []string, logger *slog.Logger) error {
	switch command := args[0]; command {
	case "up":
		return apply(m.Up(), "migrations applied", logger)

	case "down":
		return apply(m.Steps(-1), "migration rolled back", logger)

	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return apply(m.Steps(n), fmt.Sprintf("moved %d steps", n), logger)

	case "force":
		version, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return errors.Wrapf(err, "force version %d", version)
		}
		logger.Info("version forced", slog.Int("version", version))
		return nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read version")
		}
		logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil

	default:
		return errors.Errorf("unknown command %q; %s", command, usage)
	}
}

func apply(err error, done string, logger *slog.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no change")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(done)
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, errors.Errorf("%s needs a number; %s", args[0], usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, errors.Wrapf(err, "parse %q", args[1])
	}
	return n, nil
}

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool {
	return false
}
