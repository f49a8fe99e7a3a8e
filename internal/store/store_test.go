package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpdiff/internal/profile"
)

// genEntry generates rule entries with optional parameters.
func genEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Identifier(),
		gen.OneConstOf("INFO", "MINOR", "MAJOR", "CRITICAL", "BLOCKER", ""),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	).Map(func(vals []interface{}) profile.RuleEntry {
		params := vals[3].(map[string]string)
		if len(params) == 0 {
			params = nil
		}
		return profile.RuleEntry{
			Rule:     vals[0].(string) + ":" + vals[1].(string),
			Severity: vals[2].(string),
			Params:   params,
		}
	})
}

// genSnapshot generates random snapshots
func genSnapshot() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),        // name
		gen.AlphaString(),       // profile name
		gen.Identifier(),        // parent
		gen.SliceOf(genEntry()), // rules
		gen.Identifier(),        // fingerprint
	).Map(func(vals []interface{}) Snapshot {
		entries := vals[3].([]profile.RuleEntry)
		if entries == nil {
			entries = []profile.RuleEntry{}
		}
		return Snapshot{
			Name: vals[0].(string),
			Document: profile.Document{
				Key:      vals[0].(string),
				Name:     vals[1].(string),
				Language: "java",
				Parent:   vals[2].(string),
				Rules:    entries,
			},
			Fingerprint: "sha256:" + vals[4].(string),
			Timestamp:   time.Now().UTC().Truncate(time.Second),
		}
	})
}

// Saving and loading a snapshot preserves every field.
func TestSnapshotRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("save then load preserves snapshot", prop.ForAll(
		func(snap Snapshot) bool {
			store := NewStore(t.TempDir())

			if err := store.Save(snap); err != nil {
				return false
			}

			loaded, err := store.Load(snap.Name)
			if err != nil {
				return false
			}

			return loaded.Name == snap.Name &&
				loaded.Fingerprint == snap.Fingerprint &&
				loaded.Timestamp.Equal(snap.Timestamp) &&
				reflect.DeepEqual(loaded.Document, snap.Document)
		},
		genSnapshot(),
	))

	properties.TestingRun(t)
}

// ResolveDir honors QPDIFF_STORE_DIR and falls back to the default.
func TestResolveDirRespectsEnvVar(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("ResolveDir uses QPDIFF_STORE_DIR when set", prop.ForAll(
		func(customDir string) bool {
			return ResolveDir([]string{"QPDIFF_STORE_DIR=" + customDir}) == customDir
		},
		gen.Identifier().Map(func(s string) string {
			return "/custom/" + s
		}),
	))

	properties.Property("ResolveDir uses default when env var not set", prop.ForAll(
		func(otherVar string) bool {
			return ResolveDir([]string{"OTHER_VAR=" + otherVar}) == DefaultDir()
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// Snapshots with distinct names are stored separately, list returns all of
// them in name order, and delete removes only the named one.
func TestListAndDelete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("list and delete", prop.ForAll(
		func(name1, name2 string) bool {
			if name1 == name2 {
				return true
			}

			store := NewStore(t.TempDir())
			for i, name := range []string{name1, name2} {
				snap := Snapshot{
					Name:        name,
					Document:    profile.Document{Key: name, Language: "java", Rules: make([]profile.RuleEntry, i+1)},
					Fingerprint: "sha256:" + name,
				}
				if err := store.Save(snap); err != nil {
					return false
				}
			}

			summaries, err := store.List()
			if err != nil || len(summaries) != 2 {
				return false
			}
			if summaries[0].Name > summaries[1].Name {
				return false
			}
			for _, s := range summaries {
				if s.Fingerprint != "sha256:"+s.Name || s.Key != s.Name {
					return false
				}
			}

			if err := store.Delete(name1); err != nil {
				return false
			}
			summaries, err = store.List()
			return err == nil && !store.Exists(name1) && store.Exists(name2) &&
				len(summaries) == 1 && summaries[0].Name == name2
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestDefaultDir(t *testing.T) {
	dir := DefaultDir()
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir) || dir == filepath.Join(".qpdiff", "profiles"), dir)
}

func TestNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("nonexistent")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = store.Document("nonexistent")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	err = store.Delete("nonexistent")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestListMissingDirAndJunk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	store := NewStore(dir)

	summaries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)

	require.NoError(t, store.Save(Snapshot{Name: "ok", Document: profile.Document{Key: "ok"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	summaries, err = store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ok", summaries[0].Name)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Save(Snapshot{Name: " "})
	assert.True(t, errors.Is(err, ErrInvalidName))
}

func TestSanitizedNames(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(Snapshot{Name: "team/java", Document: profile.Document{Key: "java"}}))
	_, err := os.Stat(filepath.Join(dir, "team_java.json"))
	require.NoError(t, err)

	snap, err := store.Load("team/java")
	require.NoError(t, err)
	assert.Equal(t, "team/java", snap.Name)
}

func TestDocumentServesAsParentLookup(t *testing.T) {
	store := NewStore(t.TempDir())
	base := profile.Document{
		Key: "base", Name: "Base", Language: "java",
		Rules: []profile.RuleEntry{{Rule: "squid:S1", Severity: "MAJOR"}},
	}
	require.NoError(t, store.Save(Snapshot{Name: "base", Document: base}))

	child := profile.Document{Key: "child", Name: "Child", Language: "java", Parent: "base"}
	flat, err := profile.Flatten(child, store.Document)
	require.NoError(t, err)
	assert.Equal(t, base.Rules, flat.Rules)
}
