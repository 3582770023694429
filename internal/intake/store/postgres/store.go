package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"safestep/internal/intake/store"
	"safestep/pkg/platform/sentinel"
	txcontext "safestep/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store implements store.Store on PostgreSQL. Tables hold one TEXT column per
// item attribute; a batch write is a single transaction.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed intake store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Query returns every row of table whose attribute column equals the value.
// The index name is advisory; the planner picks the secondary index.
func (s *Store) Query(ctx context.Context, table string, cond store.KeyCondition) ([]store.Item, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1`,
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(cond.Attribute))

	rows, err := s.db.QueryContext(ctx, query, cond.Value)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}

	var items []store.Item
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}

		item := make(store.Item, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				item[col] = values[i].String
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return items, nil
}

// BatchWrite inserts all items in one transaction. Tables are written in name
// order so concurrent batches lock in the same sequence.
func (s *Store) BatchWrite(ctx context.Context, writes map[string][]store.Item) error {
	tables := make([]string, 0, len(writes))
	for table, items := range writes {
		if len(items) == 0 {
			return fmt.Errorf("batch write for table %q has no items", table)
		}
		tables = append(tables, table)
	}
	sort.Strings(tables)

	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, table := range tables {
			for _, item := range writes[table] {
				if err := s.insert(ctx, table, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, table string, item store.Item) error {
	cols := make([]string, 0, len(item))
	for col := range item {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = item[col]
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if _, err := s.execer(ctx).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert into %s: %w", table, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
