// Command migrate applies or inspects the ticket and interaction schema
// for the configured database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/concierge/internal/config"
	"github.com/JaimeStill/concierge/internal/migrations"
	"github.com/JaimeStill/concierge/pkg/database"
)

const usage = "usage: migrate [-driver postgres|sqlite] -up | -down | -steps N | -version | -force V"

type options struct {
	driver  string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	forced  bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, logger *slog.Logger) error {
	opts, err := parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	m, err := migrations.New(db.Connection(), db.Driver())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "version: none")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
	case opts.forced:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version %d: %w", opts.force, err)
		}
		fmt.Fprintf(out, "forced to version %d\n", opts.force)
	case opts.up:
		return apply(out, m.Up(), "schema is current")
	case opts.down:
		return apply(out, m.Down(), "schema removed")
	default:
		return apply(out, m.Steps(opts.steps), fmt.Sprintf("applied %d steps", opts.steps))
	}
	return nil
}

// parse requires exactly one action.
func parse(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.driver, "driver", "", "database driver (postgres|sqlite); defaults to the configured driver")
	fs.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	fs.BoolVar(&opts.down, "down", false, "revert all migrations")
	fs.IntVar(&opts.steps, "steps", 0, "apply N migrations; negative reverts")
	fs.BoolVar(&opts.version, "version", false, "print the current schema version")
	fs.IntVar(&opts.force, "force", -1, "set the schema version without running migrations")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	actions := 0
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "force":
			opts.forced = true
			actions++
		case "up", "down", "version", "steps":
			actions++
		}
	})

	switch {
	case actions == 0:
		return opts, errors.New(usage)
	case actions > 1:
		return opts, fmt.Errorf("only one action may be given\n%s", usage)
	}
	return opts, nil
}

func apply(out io.Writer, err error, done string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(out, "no change")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, done)
	return nil
}
