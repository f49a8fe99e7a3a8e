package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"qpdiff/internal/cli"
	"qpdiff/internal/compare"
	"qpdiff/internal/config"
	"qpdiff/internal/log"
	"qpdiff/internal/profile"
	"qpdiff/internal/rules"
	"qpdiff/internal/validator"
)

func (a *app) runCompare(ctx context.Context, cmd cli.Command) int {
	strategy, err := compare.ParseStrategy(a.cfg.Compare.Strategy)
	if err != nil {
		return a.fail(err)
	}

	left, right, err := a.loadPair(ctx, cmd.Args[0], cmd.Args[1])
	if err != nil {
		return a.fail(err)
	}

	res, err := compare.Compare(left.Rules, right.Rules, strategy)
	if err != nil {
		return a.fail(err)
	}
	c := res.Counts()
	log.WithContext(ctx).DebugContext(ctx, "compared profiles",
		slog.String("strategy", string(strategy)),
		slog.Int("onlyLeft", c.OnlyLeft),
		slog.Int("onlyRight", c.OnlyRight),
		slog.Int("modified", c.Modified),
		slog.Int("identical", c.Identical),
	)

	leftName, rightName := labels(left, right, cmd.Args[0], cmd.Args[1])
	switch a.cfg.Compare.Format {
	case config.FormatJSON:
		out, err := compare.FormatJSON(res, leftName, rightName)
		if err != nil {
			return a.fail(fmt.Errorf("cannot serialize result: %w", err))
		}
		fmt.Fprintln(a.stdout, out)
	case config.FormatCI:
		fmt.Fprint(a.stdout, compare.FormatCI(res, leftName, rightName))
	case config.FormatUnified:
		fmt.Fprint(a.stdout, compare.FormatUnified(leftName, left.Rules, rightName, right.Rules))
	default:
		fmt.Fprint(a.stdout, compare.FormatCLI(res, leftName, rightName))
	}

	if cmd.ExitCode && res.HasDifferences() {
		return exitDiffer
	}
	return exitOK
}

// labels names the two sides by profile name, falling back to the
// arguments when the names are missing or equal.
func labels(left, right profile.Profile, leftArg, rightArg string) (string, string) {
	if left.Name == "" || right.Name == "" || left.Name == right.Name {
		return leftArg, rightArg
	}
	return left.Name, right.Name
}

// loadPair loads both profiles against one catalog so they share rule
// definitions.
func (a *app) loadPair(ctx context.Context, leftRef, rightRef string) (profile.Profile, profile.Profile, error) {
	if a.useDB() {
		db, err := a.openDB(ctx)
		if err != nil {
			return profile.Profile{}, profile.Profile{}, err
		}
		defer func() { _ = db.Close() }()

		catalog, err := db.LoadCatalog(ctx)
		if err != nil {
			return profile.Profile{}, profile.Profile{}, err
		}
		left, err := db.LoadProfile(ctx, catalog, leftRef)
		if err != nil {
			return profile.Profile{}, profile.Profile{}, err
		}
		right, err := db.LoadProfile(ctx, catalog, rightRef)
		if err != nil {
			return profile.Profile{}, profile.Profile{}, err
		}
		return left, right, nil
	}

	catalog, err := a.loadCatalog(ctx)
	if err != nil {
		return profile.Profile{}, profile.Profile{}, err
	}
	left, err := a.resolveRef(ctx, leftRef, catalog)
	if err != nil {
		return profile.Profile{}, profile.Profile{}, err
	}
	right, err := a.resolveRef(ctx, rightRef, catalog)
	if err != nil {
		return profile.Profile{}, profile.Profile{}, err
	}
	return left, right, nil
}

// loadDocument reads ref as a document file when it names an existing file
// and as a saved profile name otherwise.
func (a *app) loadDocument(ref string) (profile.Document, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return profile.LoadFile(ref)
	}
	return a.snapshots().Document(ref)
}

func (a *app) resolveRef(ctx context.Context, ref string, catalog *rules.Catalog) (profile.Profile, error) {
	doc, err := a.loadDocument(ref)
	if err != nil {
		return profile.Profile{}, err
	}
	return a.resolveDocument(ctx, ref, doc, catalog)
}

// resolveDocument validates doc, folds in its parents from the saved
// profiles, and binds the result to catalog.
func (a *app) resolveDocument(ctx context.Context, ref string, doc profile.Document, catalog *rules.Catalog) (profile.Profile, error) {
	if err := validator.Validate(doc, catalog).Err(); err != nil {
		return profile.Profile{}, fmt.Errorf("%s: %w", ref, err)
	}

	if doc.Parent != "" {
		flat, err := profile.Flatten(doc, a.snapshots().Document)
		if err != nil {
			return profile.Profile{}, fmt.Errorf("%s: %w", ref, err)
		}
		if err := validator.Validate(flat, catalog).Err(); err != nil {
			return profile.Profile{}, fmt.Errorf("%s (flattened): %w", ref, err)
		}
		log.WithContext(ctx).DebugContext(ctx, "flattened profile", slog.String("key", doc.Key), slog.String("parent", doc.Parent))
		doc = flat
	}

	p, err := profile.Resolve(doc, catalog)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("%s: %w", ref, err)
	}
	return p, nil
}

// isInvalidInput reports errors caused by the profiles themselves.
func isInvalidInput(err error) bool {
	var schemaErr *profile.SchemaError
	return errors.Is(err, compare.ErrInvalidInput) ||
		errors.Is(err, validator.ErrInvalidDocument) ||
		errors.Is(err, profile.ErrInheritanceCycle) ||
		errors.As(err, &schemaErr)
}
