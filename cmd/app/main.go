package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/itsbohara/anchor/internal"
	"github.com/itsbohara/anchor/internal/mcpserver"
	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/storage"
	pkgconfig "github.com/itsbohara/anchor/pkg/config"
)

var version = "dev"

func serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// serveMCP exposes the catalog over MCP on stdio. stdout belongs to the
// protocol, so logs go to stderr.
func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := clientConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	srv := mcpserver.New(refservice.NewService(store), version)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "anchor",
		Usage:   "Catalog of the folders and files you keep coming back to",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "local",
				Usage:   "Work on the data file directly instead of through the server",
				Sources: cli.EnvVars("ANCHOR_LOCAL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the backend HTTP server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the catalog to MCP clients over stdio",
				Action: serveMCP,
			},
			{
				Name:   "popover",
				Usage:  "Open the quick-access panel",
				Action: popover,
			},
			{
				Name:  "list",
				Usage: "Print references grouped by status",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by name or tag"},
					&cli.StringSliceFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort field; repeating a field flips its direction"},
					&cli.StringFlag{Name: "dir", Usage: "asc or desc, overriding the direction picked by --sort"},
				},
				Action: list,
			},
			{
				Name:  "add",
				Usage: "Catalog a folder or file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Absolute path"},
					&cli.StringFlag{Name: "type", Usage: "folder or file", Value: "folder"},
					&cli.StringFlag{Name: "status", Usage: "active, paused, idea, completed or archived", Value: "active"},
					&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Free-form notes"},
					&cli.BoolFlag{Name: "pinned", Usage: "Pin to the top of the quick-access panel"},
				},
				Action: add,
			},
			{
				Name:      "rm",
				Usage:     "Delete a reference",
				ArgsUsage: "<id>",
				Action:    remove,
			},
			{
				Name:      "open",
				Usage:     "Open a reference",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "with", Aliases: []string{"w"}, Usage: "finder, terminal, editor, reveal or copy", Value: "finder"},
				},
				Action: open,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
