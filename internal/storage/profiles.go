package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qpdiff/internal/profile"
	"qpdiff/internal/rules"
)

// ProfileSummary is a lightweight view for listing profiles.
type ProfileSummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	ActiveRules int    `json:"activeRules"`
}

// SaveProfile stores p under its key, replacing the active rules of any
// previous profile with that key. Every active rule must already be saved.
// Values of parameter ids the rule does not declare are not stored.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p profile.Profile) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var profileID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO rules_profiles (kee, name, language) VALUES (?, ?, ?)
			ON CONFLICT (kee) DO UPDATE SET name = excluded.name, language = excluded.language
			RETURNING id`,
			p.Key, p.Name, p.Language,
		).Scan(&profileID)
		if err != nil {
			return fmt.Errorf("failed to save profile %s: %w", p.Key, err)
		}

		if err := deleteActiveRules(ctx, tx, profileID); err != nil {
			return err
		}

		for i := range p.Rules {
			if err := insertActiveRule(ctx, tx, profileID, &p.Rules[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "saved profile", "key", p.Key, "activeRules", len(p.Rules))
	return nil
}

func insertActiveRule(ctx context.Context, tx *sql.Tx, profileID int64, ar *rules.ActiveRule) error {
	if ar.Rule == nil {
		return fmt.Errorf("%w: active rule without rule", rules.ErrUnknownRule)
	}
	rid, err := ruleID(ctx, tx, ar.Rule.Key)
	if err != nil {
		return err
	}

	var activeRuleID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO active_rules (profile_id, rule_id, failure_level) VALUES (?, ?, ?)
		RETURNING id`,
		profileID, rid, int(ar.Severity),
	).Scan(&activeRuleID)
	if err != nil {
		return fmt.Errorf("failed to save active rule %s: %w", ar.Rule.Key, err)
	}

	for _, def := range ar.Rule.Params {
		v, ok := ar.Value(def.ID)
		if !ok {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO active_rule_parameters (active_rule_id, rules_parameter_id, value)
			SELECT ?, id, ? FROM rules_parameters WHERE rule_id = ? AND name = ?`,
			activeRuleID, v, rid, def.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to save parameter %s of %s: %w", def.Name, ar.Rule.Key, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to save parameter %s of %s: %w", def.Name, ar.Rule.Key, err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s of %s is not saved", profile.ErrUnknownParameter, def.Name, ar.Rule.Key)
		}
	}
	return nil
}

func deleteActiveRules(ctx context.Context, tx *sql.Tx, profileID int64) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM active_rule_parameters
		WHERE active_rule_id IN (SELECT id FROM active_rules WHERE profile_id = ?)`, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete active rule parameters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM active_rules WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("failed to delete active rules: %w", err)
	}
	return nil
}

// LoadProfile reads the profile with the given key and binds its active
// rules to catalog. Stored parameter values are matched to the catalog
// rule's parameters by name; a value for a parameter the rule does not
// declare is ErrCorruptRow. Active rules come back ordered by plugin name
// then plugin rule key, which is the order of rules.ByKey.
func (s *SQLiteStore) LoadProfile(ctx context.Context, catalog *rules.Catalog, key string) (profile.Profile, error) {
	p := profile.Profile{Key: key}
	var profileID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, language FROM rules_profiles WHERE kee = ?`, key,
	).Scan(&profileID, &p.Name, &p.Language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, key)
		}
		return profile.Profile{}, err
	}

	params, err := s.loadActiveRuleParameters(ctx, profileID)
	if err != nil {
		return profile.Profile{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ar.id, r.plugin_name, r.plugin_rule_key, ar.failure_level
		FROM active_rules ar
		JOIN rules r ON r.id = ar.rule_id
		WHERE ar.profile_id = ?
		ORDER BY r.plugin_name, r.plugin_rule_key`, profileID)
	if err != nil {
		return profile.Profile{}, err
	}
	defer func() { _ = rows.Close() }()

	p.Rules = []rules.ActiveRule{}
	for rows.Next() {
		var (
			id    int64
			k     rules.RuleKey
			level int
		)
		if err := rows.Scan(&id, &k.Repository, &k.Rule, &level); err != nil {
			return profile.Profile{}, err
		}

		rule, ok := catalog.Get(k)
		if !ok {
			return profile.Profile{}, fmt.Errorf("%w: %s", rules.ErrUnknownRule, k)
		}
		sev := rules.Severity(level)
		if !sev.Valid() {
			return profile.Profile{}, fmt.Errorf("%w: failure level %d for %s", ErrCorruptRow, level, k)
		}
		values, err := bindParameters(rule, params[id])
		if err != nil {
			return profile.Profile{}, err
		}
		p.Rules = append(p.Rules, rules.ActiveRule{Rule: rule, Severity: sev, Params: values})
	}
	if err := rows.Err(); err != nil {
		return profile.Profile{}, err
	}

	s.logger.DebugContext(ctx, "loaded profile", "key", key, "activeRules", len(p.Rules))
	return p, nil
}

// loadActiveRuleParameters returns the stored values of a profile by active
// rule id and parameter name.
func (s *SQLiteStore) loadActiveRuleParameters(ctx context.Context, profileID int64) (map[int64]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT arp.active_rule_id, arp.rules_parameter_id, rp.name, rp.rule_id = ar.rule_id, arp.value
		FROM active_rule_parameters arp
		JOIN active_rules ar ON ar.id = arp.active_rule_id
		LEFT JOIN rules_parameters rp ON rp.id = arp.rules_parameter_id
		WHERE ar.profile_id = ?`, profileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]map[string]string)
	for rows.Next() {
		var (
			activeRuleID int64
			paramID      int64
			name         sql.NullString
			sameRule     sql.NullBool
			value        string
		)
		if err := rows.Scan(&activeRuleID, &paramID, &name, &sameRule, &value); err != nil {
			return nil, err
		}
		if !name.Valid {
			return nil, fmt.Errorf("%w: value references missing parameter %d", ErrCorruptRow, paramID)
		}
		if !sameRule.Bool {
			return nil, fmt.Errorf("%w: parameter %d (%s) belongs to another rule", ErrCorruptRow, paramID, name.String)
		}
		if out[activeRuleID] == nil {
			out[activeRuleID] = make(map[string]string)
		}
		out[activeRuleID][name.String] = value
	}
	return out, rows.Err()
}

// bindParameters converts values keyed by parameter name to the ids of rule.
func bindParameters(rule *rules.Rule, byName map[string]string) (map[int]string, error) {
	if len(byName) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(byName))
	for name, v := range byName {
		def, ok := rule.Param(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %s", ErrCorruptRow, rule.Key, name)
		}
		out[def.ID] = v
	}
	return out, nil
}

// ListProfiles returns every profile ordered by language then name.
func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]ProfileSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.kee, p.name, p.language, COUNT(ar.id)
		FROM rules_profiles p
		LEFT JOIN active_rules ar ON ar.profile_id = p.id
		GROUP BY p.id, p.kee, p.name, p.language
		ORDER BY p.language, p.name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := []ProfileSummary{}
	for rows.Next() {
		var ps ProfileSummary
		if err := rows.Scan(&ps.Key, &ps.Name, &ps.Language, &ps.ActiveRules); err != nil {
			return nil, err
		}
		summaries = append(summaries, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// DeleteProfile removes the profile with the given key and its active rules.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var profileID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM rules_profiles WHERE kee = ?`, key).Scan(&profileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrProfileNotFound, key)
			}
			return err
		}
		if err := deleteActiveRules(ctx, tx, profileID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rules_profiles WHERE id = ?`, profileID); err != nil {
			return fmt.Errorf("failed to delete profile %s: %w", key, err)
		}
		return nil
	})
}
