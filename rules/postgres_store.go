package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresRuleSetStore implements RuleSetStore backed by the pricing_rules table.
// The position column carries the evaluation order.
type PostgresRuleSetStore struct {
	db *sql.DB
}

// NewPostgresRuleSetStore creates a new PostgreSQL-backed RuleSetStore
func NewPostgresRuleSetStore(db *sql.DB) *PostgresRuleSetStore {
	return &PostgresRuleSetStore{db: db}
}

// Load returns all rules ordered by position
func (s *PostgresRuleSetStore) Load() ([]PricingRule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, formula, result
		FROM pricing_rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	defer rows.Close()

	rulesList := []PricingRule{}
	for rows.Next() {
		var r PricingRule
		var formulaJSON []byte
		if err := rows.Scan(&r.ID, &r.Name, &formulaJSON, &r.Result); err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		if err := json.Unmarshal(formulaJSON, &r.Formula); err != nil {
			return nil, fmt.Errorf("invalid formula for rule %s: %w", r.ID, err)
		}
		rulesList = append(rulesList, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pricing rules: %w", err)
	}

	return rulesList, nil
}

// Save replaces the stored rule set in a single transaction
func (s *PostgresRuleSetStore) Save(rules []PricingRule) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pricing_rules`); err != nil {
		return fmt.Errorf("failed to clear pricing rules: %w", err)
	}

	for i, r := range rules {
		formulaJSON, err := json.Marshal(r.Formula)
		if err != nil {
			return fmt.Errorf("failed to marshal formula for rule %s: %w", r.ID, err)
		}

		_, err = tx.Exec(`
			INSERT INTO pricing_rules (id, position, name, formula, result, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, r.ID, i, r.Name, string(formulaJSON), r.Result)
		if err != nil {
			return fmt.Errorf("failed to insert rule %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pricing rules: %w", err)
	}

	return nil
}
