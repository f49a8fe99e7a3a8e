package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"qpdiff/internal/cli"
	"qpdiff/internal/config"
	"qpdiff/internal/log"
	"qpdiff/internal/rules"
	"qpdiff/internal/storage"
	"qpdiff/internal/store"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1 // usage or runtime error
	exitInvalid = 2 // invalid profile input
	exitDiffer  = 3 // profiles differ and --exit-code was given
)

var errNoCatalog = errors.New("no rule catalog: set --catalog or " + config.EnvCatalog)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stdout, os.Stderr))
}

// app carries what every subcommand needs.
type app struct {
	cfg     config.Config
	environ []string
	stdout  io.Writer
	stderr  io.Writer

	catalog *rules.Catalog
}

// run orchestrates the full execution flow and returns the exit code.
// It is separated from main() to enable testing.
func run(args []string, environ []string, stdout, stderr io.Writer) int {
	cmd, err := cli.ParseArgs(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			fmt.Fprint(stdout, cli.Usage+cli.FlagUsages())
			return exitOK
		}
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}

	cfg, err := config.Load(cmd.ConfigPath, environ)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
	cfg = cmd.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}

	logger, err := log.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
	ctx := log.IntoContext(context.Background(), logger)

	a := &app{cfg: cfg, environ: environ, stdout: stdout, stderr: stderr}
	logger.DebugContext(ctx, "starting", slog.String("subcommand", string(cmd.Subcommand)))

	switch cmd.Subcommand {
	case cli.SubcommandCompare:
		return a.runCompare(ctx, cmd)
	case cli.SubcommandProfiles:
		return a.runProfiles(ctx)
	case cli.SubcommandSave:
		return a.runSave(ctx, cmd)
	case cli.SubcommandDelete:
		return a.runDelete(ctx, cmd)
	case cli.SubcommandExport:
		return a.runExport(ctx, cmd)
	}

	return exitError
}

// fail prints err and maps it to an exit code.
func (a *app) fail(err error) int {
	fmt.Fprintln(a.stderr, "Error:", err)
	if isInvalidInput(err) {
		return exitInvalid
	}
	return exitError
}

// loadCatalog reads the configured catalog file once.
func (a *app) loadCatalog(ctx context.Context) (*rules.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	if a.cfg.Catalog == "" {
		return nil, errNoCatalog
	}
	c, err := rules.LoadCatalog(a.cfg.Catalog)
	if err != nil {
		return nil, err
	}
	log.WithContext(ctx).DebugContext(ctx, "loaded catalog", slog.String("path", a.cfg.Catalog), slog.Int("rules", c.Len()))
	a.catalog = c
	return c, nil
}

func (a *app) snapshots() *store.Store {
	dir := a.cfg.Store.Dir
	if dir == "" {
		dir = store.ResolveDir(a.environ)
	}
	return store.NewStore(dir)
}

func (a *app) openDB(ctx context.Context) (*storage.SQLiteStore, error) {
	return storage.Open(a.cfg.Database.DSN, storage.WithLogger(log.WithContext(ctx)))
}

func (a *app) useDB() bool {
	return a.cfg.Database.DSN != ""
}
