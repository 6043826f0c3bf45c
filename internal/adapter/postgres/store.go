package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Generic plan operations ---

// Select reads rows matching the equality conditions.
func (s *Store) Select(ctx context.Context, table string, conds []plan.Condition) ([]database.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	where, args, err := whereClause(conds, 0)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT * FROM "+table+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", table, domain.ErrStore, err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// Insert writes one row and returns it, including generated columns.
func (s *Store) Insert(ctx context.Context, table string, data database.Row) (database.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: insert into %s with no data", domain.ErrValidation, table)
	}

	// Deterministic column order keeps queries stable for logging and tests.
	cols := make([]string, 0, len(data))
	for col := range data {
		if err := checkIdent(col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[col]
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w: %w", table, domain.ErrStore, err)
	}
	defer rows.Close()

	inserted, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("insert %s: %w: no row returned", table, domain.ErrStore)
	}
	return inserted[0], nil
}

// Update modifies matching rows and returns the updated rows.
func (s *Store) Update(ctx context.Context, table string, data database.Row, conds []plan.Condition) ([]database.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: update %s with no data", domain.ErrValidation, table)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: update %s without conditions", domain.ErrValidation, table)
	}

	cols := make([]string, 0, len(data))
	for col := range data {
		if err := checkIdent(col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(conds))
	for i, col := range cols {
		args = append(args, data[col])
		sets[i] = fmt.Sprintf("%s = $%d", col, len(args))
	}

	where, whereArgs, err := whereClause(conds, len(args))
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	q := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", table, strings.Join(sets, ", "), where)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w: %w", table, domain.ErrStore, err)
	}
	defer rows.Close()

	updated, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("update %s: %w", table, domain.ErrNotFound)
	}
	return updated, nil
}

// Delete removes matching rows and returns the affected count.
func (s *Store) Delete(ctx context.Context, table string, conds []plan.Condition) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if len(conds) == 0 {
		return 0, fmt.Errorf("%w: delete from %s without conditions", domain.ErrValidation, table)
	}

	where, args, err := whereClause(conds, 0)
	if err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM "+table+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w: %w", table, domain.ErrStore, err)
	}
	return tag.RowsAffected(), nil
}
