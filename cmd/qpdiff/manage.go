package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"qpdiff/internal/cli"
	"qpdiff/internal/config"
	"qpdiff/internal/log"
	"qpdiff/internal/profile"
	"qpdiff/internal/rules"
	"qpdiff/internal/store"
)

func (a *app) runProfiles(ctx context.Context) int {
	var list any
	if a.useDB() {
		db, err := a.openDB(ctx)
		if err != nil {
			return a.fail(err)
		}
		defer func() { _ = db.Close() }()

		profiles, err := db.ListProfiles(ctx)
		if err != nil {
			return a.fail(fmt.Errorf("cannot list profiles: %w", err))
		}
		list = profiles
		if a.cfg.Compare.Format != config.FormatJSON {
			if len(profiles) == 0 {
				fmt.Fprintln(a.stdout, "No profiles found")
			}
			for _, p := range profiles {
				fmt.Fprintf(a.stdout, "%s  %s  %s  %d rule(s)\n", p.Key, p.Language, p.Name, p.ActiveRules)
			}
			return exitOK
		}
	} else {
		summaries, err := a.snapshots().List()
		if err != nil {
			return a.fail(fmt.Errorf("cannot list profiles: %w", err))
		}
		list = summaries
		if a.cfg.Compare.Format != config.FormatJSON {
			if len(summaries) == 0 {
				fmt.Fprintln(a.stdout, "No profiles found")
			}
			for _, s := range summaries {
				fmt.Fprintf(a.stdout, "%s  %s  %s  %d rule(s)  %s  %s\n",
					s.Name, s.Key, s.Language, s.Rules, shortFingerprint(s.Fingerprint), s.Timestamp.Format(time.RFC3339))
			}
			return exitOK
		}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return a.fail(fmt.Errorf("cannot serialize profiles: %w", err))
	}
	fmt.Fprintln(a.stdout, string(data))
	return exitOK
}

func shortFingerprint(fp string) string {
	if len(fp) > 19 {
		return fp[:19] + "..."
	}
	return fp
}

// runSave saves a profile document. With a database the resolved profile is
// written there, using the configured catalog when one is set and the
// stored catalog otherwise; without one the document is saved as a
// snapshot.
func (a *app) runSave(ctx context.Context, cmd cli.Command) int {
	path := cmd.Args[0]
	doc, err := profile.LoadFile(path)
	if err != nil {
		return a.fail(err)
	}

	name := cmd.Name
	if name == "" {
		name = doc.Key
	}

	if a.useDB() {
		return a.saveToDB(ctx, path, name, doc)
	}

	catalog, err := a.loadCatalog(ctx)
	if err != nil {
		return a.fail(err)
	}
	p, err := a.resolveDocument(ctx, path, doc, catalog)
	if err != nil {
		return a.fail(err)
	}

	snap := store.Snapshot{
		Name:        name,
		Document:    doc,
		Fingerprint: profile.Fingerprint(p),
		Timestamp:   time.Now().UTC(),
	}
	if err := a.snapshots().Save(snap); err != nil {
		return a.fail(fmt.Errorf("cannot save profile: %w", err))
	}

	log.WithContext(ctx).DebugContext(ctx, "saved snapshot", slog.String("name", name), slog.String("fingerprint", snap.Fingerprint))
	fmt.Fprintf(a.stdout, "Saved profile: %s (%d rule(s), %s)\n", name, len(p.Rules), shortFingerprint(snap.Fingerprint))
	return exitOK
}

func (a *app) saveToDB(ctx context.Context, path, key string, doc profile.Document) int {
	db, err := a.openDB(ctx)
	if err != nil {
		return a.fail(err)
	}
	defer func() { _ = db.Close() }()

	var catalog *rules.Catalog
	if a.cfg.Catalog != "" {
		if catalog, err = a.loadCatalog(ctx); err != nil {
			return a.fail(err)
		}
		if err := db.SaveCatalog(ctx, catalog); err != nil {
			return a.fail(fmt.Errorf("cannot save catalog: %w", err))
		}
	} else if catalog, err = db.LoadCatalog(ctx); err != nil {
		return a.fail(err)
	}

	p, err := a.resolveDocument(ctx, path, doc, catalog)
	if err != nil {
		return a.fail(err)
	}
	p.Key = key

	if err := db.SaveProfile(ctx, p); err != nil {
		return a.fail(fmt.Errorf("cannot save profile: %w", err))
	}
	fmt.Fprintf(a.stdout, "Saved profile: %s (%d rule(s), %s)\n", key, len(p.Rules), shortFingerprint(profile.Fingerprint(p)))
	return exitOK
}

func (a *app) runDelete(ctx context.Context, cmd cli.Command) int {
	name := cmd.Args[0]

	if a.useDB() {
		db, err := a.openDB(ctx)
		if err != nil {
			return a.fail(err)
		}
		defer func() { _ = db.Close() }()

		if err := db.DeleteProfile(ctx, name); err != nil {
			return a.fail(fmt.Errorf("cannot delete profile: %w", err))
		}
	} else if err := a.snapshots().Delete(name); err != nil {
		return a.fail(fmt.Errorf("cannot delete profile: %w", err))
	}

	fmt.Fprintf(a.stdout, "Deleted profile: %s\n", name)
	return exitOK
}

// runExport prints a profile as a document with its parents folded in and
// every rule listed with its severity. The output can be saved again.
func (a *app) runExport(ctx context.Context, cmd cli.Command) int {
	ref := cmd.Args[0]

	var (
		p   profile.Profile
		err error
	)
	if a.useDB() {
		p, err = a.loadFromDB(ctx, ref)
	} else {
		var catalog *rules.Catalog
		if catalog, err = a.loadCatalog(ctx); err == nil {
			p, err = a.resolveRef(ctx, ref, catalog)
		}
	}
	if err != nil {
		return a.fail(err)
	}

	doc := profile.FromProfile(p)
	var data []byte
	if a.cfg.Compare.Format == config.FormatJSON {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = doc.ToYAML()
	}
	if err != nil {
		return a.fail(fmt.Errorf("cannot serialize profile: %w", err))
	}
	log.WithContext(ctx).DebugContext(ctx, "exported profile", slog.String("key", p.Key), slog.Int("rules", len(p.Rules)))
	_, _ = a.stdout.Write(data)
	return exitOK
}

func (a *app) loadFromDB(ctx context.Context, key string) (profile.Profile, error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	defer func() { _ = db.Close() }()

	catalog, err := db.LoadCatalog(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	return db.LoadProfile(ctx, catalog, key)
}
