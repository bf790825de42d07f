package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tracker/internal"
	pkgconfig "github.com/starford/tracker/pkg/config"
)

// loadConfig reads the config file, falling back to defaults when it is
// absent, and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("workspace") {
		cfg.Workspace.Path = cmd.String("workspace")
	}
	if cmd.IsSet("project-root") {
		cfg.Workspace.ProjectRoot = cmd.String("project-root")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Init(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func workspaceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "workspace",
			Aliases: []string{"w"},
			Usage:   "Workspace directory (overrides workspace.path)",
			Sources: cli.EnvVars("TRACKER_WORKSPACE", "PROJECT_TRACKER_WORKSPACE"),
		},
		&cli.StringFlag{
			Name:    "project-root",
			Usage:   "Project root reported to clients",
			Sources: cli.EnvVars("TRACKER_PROJECT_ROOT", "PROJECT_TRACKER_PROJECT_ROOT"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "tracker",
		Usage:  "File-backed tracker for initiatives, todos and ideas",
		Action: run,
		Flags: append(workspaceFlags(), &cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "HTTP port (overrides app.http.port)",
		}),
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the workspace directory layout",
				Flags:  workspaceFlags(),
				Action: runInit,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the workspace as MCP tools on stdio",
				Flags:  workspaceFlags(),
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
