/*
seed.go - Demo dataset for local development

Loads a small, stable set of staff, members, and catalog services so the
workflow endpoints have something to act on. Idempotent: fixed ids with
INSERT OR IGNORE, safe to run on every start.
*/
package sqlite

import (
	"context"
	"fmt"
)

// Seed inserts the demo dataset. Existing rows are left untouched.
func (s *Store) Seed(ctx context.Context) error {
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT OR IGNORE INTO employee (id, name, phone, role, active, created_at)
		  VALUES (?, ?, ?, ?, 1, ?)`, []any{1, "Dana Reyes", "0700000001", "receptionist", "2025-01-06T08:00:00Z"}},
		{`INSERT OR IGNORE INTO employee (id, name, phone, role, active, created_at)
		  VALUES (?, ?, ?, ?, 1, ?)`, []any{2, "Marcus Okello", "0700000002", "trainer", "2025-01-06T08:00:00Z"}},
		{`INSERT OR IGNORE INTO employee (id, name, phone, role, active, created_at)
		  VALUES (?, ?, ?, ?, 1, ?)`, []any{3, "Priya Nair", "0700000003", "trainer", "2025-02-10T08:00:00Z"}},

		{`INSERT OR IGNORE INTO users (id, name, phone, joined_at)
		  VALUES (?, ?, ?, ?)`, []any{1, "Sam Kiprotich", "0711111111", "2025-03-01T10:00:00Z"}},
		{`INSERT OR IGNORE INTO users (id, name, phone, joined_at)
		  VALUES (?, ?, ?, ?)`, []any{2, "Lena Fischer", "0722222222", "2025-04-15T10:00:00Z"}},

		{`INSERT OR IGNORE INTO service_types (id, name, description, monthly_price)
		  VALUES (?, ?, ?, ?)`, []any{1, "Gym Access", "Full gym floor access", "45.00"}},
		{`INSERT OR IGNORE INTO service_types (id, name, description, monthly_price)
		  VALUES (?, ?, ?, ?)`, []any{2, "Personal Training", "One-on-one trainer sessions", "120.00"}},
		{`INSERT OR IGNORE INTO service_types (id, name, description, monthly_price)
		  VALUES (?, ?, ?, ?)`, []any{3, "Group Classes", "Scheduled group classes", "30.00"}},
		{`INSERT OR IGNORE INTO service_types (id, name, description, monthly_price)
		  VALUES (?, ?, ?, ?)`, []any{4, "Sauna", "Sauna and recovery area", "25.00"}},
	}

	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
