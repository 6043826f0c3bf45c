package postgres

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// allowedTables are the only tables generic plan operations may touch.
// Anything else is a validation error, not a store error.
var allowedTables = map[string]bool{
	"tickets":       true,
	"ticket_skills": true,
	"articles":      true,
	"categories":    true,
	"teams":         true,
	"members":       true,
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// checkTable rejects tables outside the allowlist.
func checkTable(table string) error {
	if !allowedTables[table] {
		return fmt.Errorf("%w: table %q not permitted", domain.ErrValidation, table)
	}
	return nil
}

// checkIdent rejects column names that are not plain lower-case identifiers.
// Column names come from executor-built plans, never raw user text, but the
// check keeps the generic SQL builder closed under valid identifiers.
func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", domain.ErrValidation, name)
	}
	return nil
}

// whereClause renders equality conditions as a WHERE fragment with
// positional parameters starting at argOffset+1. Returns the fragment
// (empty when there are no conditions) and the argument values.
func whereClause(conds []plan.Condition, argOffset int) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		if err := checkIdent(c.Field); err != nil {
			return "", nil, err
		}
		args = append(args, c.Value)
		parts = append(parts, fmt.Sprintf("%s = $%d", c.Field, argOffset+len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// rowsToMaps drains rows into generic Row maps keyed by column name.
func rowsToMaps(rows pgx.Rows) ([]database.Row, error) {
	fields := rows.FieldDescriptions()

	var out []database.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		m := make(database.Row, len(fields))
		for i, fd := range fields {
			m[fd.Name] = values[i]
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// nullIfEmpty returns nil for empty strings (for nullable UUID columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
