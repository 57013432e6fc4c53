// Command migrate manages the database schema.
//
//	migrate [-dir path] up|down|status|redo
//	migrate [-dir path] to <YYYYMMDDHHMMSS>
//	migrate [-dir path] create <name>
//	migrate [-dir path] validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/migrate"
)

type command struct {
	// offline commands only touch files on disk
	offline bool
	arg     string
	run     func(ctx context.Context, dir, arg string, m *migrate.Migrator) error
}

var commands = map[string]command{
	"up": {run: func(ctx context.Context, _, _ string, m *migrate.Migrator) error {
		applied, err := m.Up(ctx)
		fmt.Printf("applied %d migration(s)\n", applied)
		return err
	}},
	"down":   {run: func(ctx context.Context, _, _ string, m *migrate.Migrator) error { return m.Down(ctx) }},
	"redo":   {run: func(ctx context.Context, _, _ string, m *migrate.Migrator) error { return m.Redo(ctx) }},
	"status": {run: printStatus},
	"to": {
		arg: "version",
		run: func(ctx context.Context, _, version string, m *migrate.Migrator) error { return m.To(ctx, version) },
	},
	"create": {
		offline: true,
		arg:     "name",
		run: func(_ context.Context, dir, name string, _ *migrate.Migrator) error {
			path, err := migrate.CreateSQLMigration(dir, name, time.Now())
			if err == nil {
				fmt.Println("created", path)
			}
			return err
		},
	},
	"validate": {
		offline: true,
		run: func(_ context.Context, dir, _ string, _ *migrate.Migrator) error {
			if err := migrate.ValidateDir(dir); err != nil {
				return err
			}
			fmt.Println("migrations valid")
			return nil
		},
	},
}

func printStatus(ctx context.Context, _, _ string, m *migrate.Migrator) error {
	rows, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-25s %s\n", applied, row.Name)
	}
	return nil
}

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory used by create and validate")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-dir path] up|down|status|redo|to <version>|create <name>|validate")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args(), *dir); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string, dir string) error {
	if len(args) == 0 {
		args = []string{"up"}
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		flag.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
	var arg string
	if cmd.arg != "" {
		if len(args) < 2 || args[1] == "" {
			return fmt.Errorf("%s needs a %s argument", name, cmd.arg)
		}
		arg = args[1]
	}
	if cmd.offline {
		return cmd.run(context.Background(), dir, arg, nil)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "command": name})

	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	if cfg.FeatureFlags.UseSQLite {
		// the SQL files target Postgres; sqlite schemas come from the models
		if name != "up" {
			return errors.New("sqlite databases only support up")
		}
		return migrate.MaybeRunDev(ctx, cfg, logg, client)
	}

	handle, err := client.SQLDB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	m, err := migrate.NewMigrator(handle, client.Dialect())
	if err != nil {
		return err
	}
	logg.Info(ctx, "running migration command")
	return cmd.run(ctx, dir, arg, m)
}
