package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpdiff/internal/profile"
	"qpdiff/internal/rules"
)

var errDisk = errors.New("disk I/O error")

var parameterColumns = []string{"active_rule_id", "rules_parameter_id", "name", "same_rule", "value"}

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS rules (")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return s, mock
}

func TestMigrateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errDisk)

	_, err = NewSQLiteStore(db)
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRuleCommitError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rules (plugin_name, plugin_rule_key, name)")).
		WithArgs("squid", "S1", "Rule one").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rules_parameters (rule_id, name)")).
		WithArgs(int64(7), "max").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit().WillReturnError(errDisk)

	err := s.SaveRule(context.Background(), &rules.Rule{
		Key:    rules.MustParseRuleKey("squid:S1"),
		Name:   "Rule one",
		Params: []rules.ParameterDefinition{{ID: 3, Name: "max"}},
	})
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveProfileRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rules_profiles")).
		WithArgs("k", "Name", "java").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM active_rule_parameters")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM active_rules WHERE profile_id = ?")).
		WithArgs(int64(1)).
		WillReturnError(errDisk)
	mock.ExpectRollback()

	err := s.SaveProfile(context.Background(), profile.Profile{Key: "k", Name: "Name", Language: "java"})
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "failed to delete active rules")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveProfileUnknownRule(t *testing.T) {
	s, mock := newMockStore(t)
	rule := &rules.Rule{Key: rules.MustParseRuleKey("pmd:Missing"), Name: "Missing"}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO rules_profiles").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("DELETE FROM active_rule_parameters").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM active_rules").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rules WHERE plugin_name = ? AND plugin_rule_key = ?")).
		WithArgs("pmd", "Missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := s.SaveProfile(context.Background(), profile.Profile{
		Key: "k", Name: "Name", Language: "java",
		Rules: []rules.ActiveRule{{Rule: rule, Severity: rules.SeverityMajor}},
	})
	require.ErrorIs(t, err, rules.ErrUnknownRule)
	assert.Contains(t, err.Error(), "pmd:Missing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadProfileErrors(t *testing.T) {
	catalog, err := rules.NewCatalog(&rules.Rule{Key: rules.MustParseRuleKey("squid:S1"), Name: "Rule one"})
	require.NoError(t, err)

	t.Run("query error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, language FROM rules_profiles WHERE kee = ?")).
			WithArgs("k").
			WillReturnError(errDisk)

		_, err := s.LoadProfile(context.Background(), catalog, "k")
		require.ErrorIs(t, err, errDisk)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt failure level", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("FROM rules_profiles").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "language"}).AddRow(1, "Name", "java"))
		mock.ExpectQuery("FROM active_rule_parameters").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(parameterColumns))
		mock.ExpectQuery("FROM active_rules ar").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "plugin_name", "plugin_rule_key", "failure_level"}).
				AddRow(10, "squid", "S1", 9))

		_, err := s.LoadProfile(context.Background(), catalog, "k")
		require.ErrorIs(t, err, ErrCorruptRow)
		assert.Contains(t, err.Error(), "failure level 9")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoadProfileCorruptParameters(t *testing.T) {
	catalog, err := rules.NewCatalog(&rules.Rule{
		Key: rules.MustParseRuleKey("squid:S1"), Name: "Rule one",
		Params: []rules.ParameterDefinition{{ID: 1, Name: "max"}},
	})
	require.NoError(t, err)

	tests := map[string]struct {
		row  []driver.Value
		want string
	}{
		"missing parameter": {
			row:  []driver.Value{10, 5, nil, nil, "3"},
			want: "missing parameter 5",
		},
		"parameter of another rule": {
			row:  []driver.Value{10, 5, "max", false, "3"},
			want: "parameter 5 (max) belongs to another rule",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery("FROM rules_profiles").
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "language"}).AddRow(1, "Name", "java"))
			mock.ExpectQuery("FROM active_rule_parameters").
				WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows(parameterColumns).AddRow(tc.row...))

			_, err := s.LoadProfile(context.Background(), catalog, "k")
			require.ErrorIs(t, err, ErrCorruptRow)
			assert.Contains(t, err.Error(), tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLoadCatalogOrphanParameter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM rules").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plugin_name", "plugin_rule_key", "name"}).
			AddRow(1, "squid", "S1", "Rule one"))
	mock.ExpectQuery("FROM rules_parameters").
		WillReturnRows(sqlmock.NewRows([]string{"id", "rule_id", "name"}).AddRow(5, 2, "max"))

	_, err := s.LoadCatalog(context.Background())
	require.ErrorIs(t, err, ErrCorruptRow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfilesError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM rules_profiles p").WillReturnError(errDisk)

	_, err := s.ListProfiles(context.Background())
	require.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}
