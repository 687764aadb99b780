package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jordanvales/threadswap-backend/pkg/config"
	"github.com/jordanvales/threadswap-backend/pkg/db"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/migrate"
)

type cliArgs struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	args := parseArgs()

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logg, "load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": args.cmd,
		"dir": args.dir,
	})

	// create and validate work on the migration files alone
	switch args.cmd {
	case "create":
		if args.name == "" {
			fmt.Fprintln(os.Stderr, "create requires -name")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(args.dir, args.name)
		if err != nil {
			fatal(ctx, logg, "create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(args.dir); err != nil {
			fatal(ctx, logg, "validate migrations", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	sqlDB, closeDB := openDatabase(ctx, logg, cfg)
	defer closeDB()

	switch args.cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, args.dir, args.cmd); err != nil {
			fatal(ctx, logg, "goose "+args.cmd, err)
		}
	case "version":
		if args.version == "" {
			fmt.Fprintln(os.Stderr, "version requires -version")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, args.dir, args.version); err != nil {
			fatal(ctx, logg, "migrate to version", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", args.cmd)
		os.Exit(1)
	}
}

func parseArgs() cliArgs {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()
	return cliArgs{cmd: *cmd, dir: *dir, name: *name, version: *version}
}

func openDatabase(ctx context.Context, logg *logger.Logger, cfg *config.Config) (*sql.DB, func()) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(ctx, logg, "connect database", err)
	}
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fatal(ctx, logg, "unwrap sql database", err)
	}
	return sqlDB, func() { _ = dbClient.Close() }
}

func fatal(ctx context.Context, logg *logger.Logger, what string, err error) {
	logg.Error(ctx, what+" failed", err)
	os.Exit(1)
}
