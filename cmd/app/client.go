package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/itsbohara/anchor/internal"
	"github.com/itsbohara/anchor/internal/cache"
	"github.com/itsbohara/anchor/internal/events"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/pathcheck"
	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/remote"
	"github.com/itsbohara/anchor/internal/shell"
	"github.com/itsbohara/anchor/internal/storage"
	"github.com/itsbohara/anchor/internal/tui"
	"github.com/itsbohara/anchor/internal/view"
	"github.com/itsbohara/anchor/internal/watcher"
	pkgconfig "github.com/itsbohara/anchor/pkg/config"
)

// openWith maps the --with values of the open command to backend commands.
var openWith = map[string]string{
	"finder":   shell.OpenInFinder,
	"terminal": shell.OpenInTerminal,
	"editor":   shell.OpenInEditor,
	"reveal":   shell.RevealInFinder,
	"copy":     shell.CopyPath,
}

// clientConfig loads the config for the client commands. A missing file is
// fine; logs go to stderr so stdout stays clean for tables.
func clientConfig(cmd *cli.Command) (*internal.Config, *slog.Logger, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// backend is what the client commands talk to: either the HTTP server or,
// with --local, the data file in-process.
type backend struct {
	remote.Store
	remote.Runner

	// listen feeds references_changed into bus until ctx is done.
	listen func(ctx context.Context, bus *events.Bus)
	close  func() error
}

func connect(cmd *cli.Command, cfg *internal.Config, logger *slog.Logger) (*backend, error) {
	if !cmd.Bool("local") {
		client := remote.NewClient(cfg.Client.ServerURL, cfg.Client.Token, logger)
		return &backend{
			Store:  client,
			Runner: client,
			listen: func(ctx context.Context, bus *events.Bus) {
				if err := client.Listen(ctx, bus); err != nil {
					logger.Warn("event stream closed", slog.String("error", err.Error()))
				}
			},
			close: func() error { return nil },
		}, nil
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	launcher := shell.New(shell.Config{
		Terminal: cfg.Shell.Terminal,
		Editor:   cfg.Shell.Editor,
	}, shell.WithLogger(logger))
	local := remote.NewLocal(refservice.NewService(store), launcher)

	b := &backend{
		Store:  local,
		Runner: local,
		listen: func(context.Context, *events.Bus) {},
		close:  store.Close,
	}
	if js, ok := store.(*storage.JSON); ok {
		b.listen = func(ctx context.Context, bus *events.Bus) {
			err := watcher.Watch(ctx, js.Path(), js.Checksum, logger, func() {
				bus.Emit(events.ReferencesChanged)
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
		}
	}
	return b, nil
}

func withBackend(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, cfg *internal.Config, b *backend, c *cache.Store) error) error {
	cfg, logger, err := clientConfig(cmd)
	if err != nil {
		return err
	}
	b, err := connect(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()
	return fn(ctx, cfg, b, cache.New(b, logger))
}

func popover(ctx context.Context, cmd *cli.Command) error {
	return withBackend(ctx, cmd, func(ctx context.Context, cfg *internal.Config, b *backend, c *cache.Store) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		bus := events.NewBus()
		go b.listen(ctx, bus)

		dashboard, err := tui.Run(ctx, tui.Options{
			Cache:          c,
			Runner:         b,
			Checker:        b,
			Bus:            bus,
			PathCheckDelay: cfg.Client.PathCheckDelay,
			Logger:         slog.Default(),
		})
		if err != nil || !dashboard {
			return err
		}
		groups := view.Dashboard(c.Snapshot().References, "", view.DefaultSort)
		return tui.RenderDashboard(os.Stdout, groups)
	})
}

// listSort applies each --sort value the way successive header clicks do,
// starting from the default order. A non-empty dir overrides the direction.
func listSort(fields []string, dir string) (view.Sort, error) {
	s := view.DefaultSort
	for _, f := range fields {
		s = view.NextSort(s, f)
	}
	switch d := view.Direction(dir); d {
	case "":
	case view.Asc, view.Desc:
		s.Dir = d
	default:
		return view.Sort{}, fmt.Errorf("unknown --dir value %q", dir)
	}
	return s, nil
}

func list(ctx context.Context, cmd *cli.Command) error {
	return withBackend(ctx, cmd, func(ctx context.Context, _ *internal.Config, _ *backend, c *cache.Store) error {
		if err := c.Load(ctx); err != nil {
			return err
		}
		sort, err := listSort(cmd.StringSlice("sort"), cmd.String("dir"))
		if err != nil {
			return err
		}
		groups := view.Dashboard(c.Snapshot().References, cmd.String("query"), sort)
		return tui.RenderDashboard(os.Stdout, groups)
	})
}

func add(ctx context.Context, cmd *cli.Command) error {
	return withBackend(ctx, cmd, func(ctx context.Context, _ *internal.Config, b *backend, c *cache.Store) error {
		d := models.Draft{
			ReferenceName: cmd.String("name"),
			AbsolutePath:  cmd.String("path"),
			Type:          models.Type(cmd.String("type")),
			Status:        models.Status(cmd.String("status")),
			Tags:          models.NormalizeTags(cmd.String("tags")),
			Pinned:        cmd.Bool("pinned"),
		}
		if desc := cmd.String("description"); desc != "" {
			d.Description = &desc
		}
		d = d.Normalize()

		if res := models.ValidateForSave(d); !res.Valid {
			return res
		}
		if exists, err := b.PathExists(ctx, d.AbsolutePath); err == nil && !exists {
			fmt.Fprintln(os.Stderr, pathcheck.WarningText)
		}

		ref, err := c.Add(ctx, d)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", ref.ReferenceName, ref.ID)
		return nil
	})
}

func remove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("reference id is required")
	}
	return withBackend(ctx, cmd, func(ctx context.Context, _ *internal.Config, _ *backend, c *cache.Store) error {
		if err := c.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", id)
		return nil
	})
}

func open(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("reference id is required")
	}
	command, ok := openWith[cmd.String("with")]
	if !ok {
		return fmt.Errorf("unknown --with value %q", cmd.String("with"))
	}
	return withBackend(ctx, cmd, func(ctx context.Context, _ *internal.Config, b *backend, c *cache.Store) error {
		if err := c.Load(ctx); err != nil {
			return err
		}
		for _, r := range c.Snapshot().References {
			if r.ID == id {
				if err := b.Run(ctx, command, r.AbsolutePath); err != nil {
					return err
				}
				return nil
			}
		}
		return fmt.Errorf("reference %s not found", id)
	})
}
