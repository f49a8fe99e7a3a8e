package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qpdiff/internal/rules"
)

// SaveCatalog saves every rule of the catalog in one transaction.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, catalog *rules.Catalog) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range catalog.Rules() {
			if err := saveRule(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "saved catalog", "rules", catalog.Len())
	return nil
}

// SaveRule inserts or updates a rule and its parameter definitions.
// Parameters are matched by rule and name and keep the database id they got
// when first saved; the ids of r.Params are not stored.
func (s *SQLiteStore) SaveRule(ctx context.Context, r *rules.Rule) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveRule(ctx, tx, r)
	})
}

func saveRule(ctx context.Context, tx *sql.Tx, r *rules.Rule) error {
	var ruleID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO rules (plugin_name, plugin_rule_key, name) VALUES (?, ?, ?)
		ON CONFLICT (plugin_name, plugin_rule_key) DO UPDATE SET name = excluded.name
		RETURNING id`,
		r.Key.Repository, r.Key.Rule, r.Name,
	).Scan(&ruleID)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", r.Key, err)
	}

	for _, p := range r.Params {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rules_parameters (rule_id, name) VALUES (?, ?)
			ON CONFLICT (rule_id, name) DO NOTHING`,
			ruleID, p.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to save parameter %s of %s: %w", p.Name, r.Key, err)
		}
	}
	return nil
}

// LoadCatalog reads every rule with its parameters. Parameter ids are the
// database ids, so parameters are listed in the order they were first saved.
func (s *SQLiteStore) LoadCatalog(ctx context.Context) (*rules.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plugin_name, plugin_rule_key, name
		FROM rules
		ORDER BY plugin_name, plugin_rule_key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]*rules.Rule)
	var all []*rules.Rule
	for rows.Next() {
		var (
			id int64
			r  rules.Rule
		)
		if err := rows.Scan(&id, &r.Key.Repository, &r.Key.Rule, &r.Name); err != nil {
			return nil, err
		}
		byID[id] = &r
		all = append(all, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadParameters(ctx, byID); err != nil {
		return nil, err
	}

	catalog, err := rules.NewCatalog(all...)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "loaded catalog", "rules", catalog.Len())
	return catalog, nil
}

func (s *SQLiteStore) loadParameters(ctx context.Context, byID map[int64]*rules.Rule) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, name
		FROM rules_parameters
		ORDER BY rule_id, id`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ruleID int64
			p      rules.ParameterDefinition
		)
		if err := rows.Scan(&p.ID, &ruleID, &p.Name); err != nil {
			return err
		}
		r, ok := byID[ruleID]
		if !ok {
			return fmt.Errorf("%w: parameter %d references missing rule %d", ErrCorruptRow, p.ID, ruleID)
		}
		r.Params = append(r.Params, p)
	}
	return rows.Err()
}

func ruleID(ctx context.Context, tx *sql.Tx, key rules.RuleKey) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM rules WHERE plugin_name = ? AND plugin_rule_key = ?`,
		key.Repository, key.Rule,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", rules.ErrUnknownRule, key)
	}
	return id, err
}
