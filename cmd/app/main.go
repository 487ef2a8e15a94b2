package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starkad/ordna/internal"
	"github.com/starkad/ordna/internal/engine"
	"github.com/starkad/ordna/internal/files"
	"github.com/starkad/ordna/internal/mcpserver"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/store"
	pkgconfig "github.com/starkad/ordna/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP starts the engine without the HTTP surface and serves MCP tools
// over stdio for LLM client integration.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer db.Close()

	fs, err := files.NewStore(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	eng, err := engine.New(db, fs, schedule.NewReal())
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	eng.Start()
	defer eng.Close()

	return mcpserver.New(eng).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "ordna",
		Usage:  "Ambient organization engine for local chat: conversation classification, project suggestions, and knowledge graduation",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio instead of the HTTP API",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
