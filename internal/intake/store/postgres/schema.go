package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// Schema names the tables and indexes EnsureSchema creates.
type Schema struct {
	ContactTable        string
	ContactIndex        string
	IdentityColumn      string
	ResponsibilityTable string
	GreenIndex          string
}

// Statements renders the idempotent DDL for the schema.
func (sc Schema) Statements() []string {
	contacts := pq.QuoteIdentifier(sc.ContactTable)
	links := pq.QuoteIdentifier(sc.ResponsibilityTable)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ecid TEXT PRIMARY KEY,
	f_name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	dialing_code TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, contacts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`,
			pq.QuoteIdentifier(sc.ContactIndex), contacts, pq.QuoteIdentifier(sc.IdentityColumn)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	rid TEXT PRIMARY KEY,
	ecid TEXT NOT NULL,
	green_id TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, links),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (green_id)`,
			pq.QuoteIdentifier(sc.GreenIndex), links),
	}
}

// EnsureSchema creates the intake tables and secondary indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context, sc Schema) error {
	for _, stmt := range sc.Statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
