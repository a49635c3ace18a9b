package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Table declares a table and the columns the service reads from it.
type Table struct {
	Name    string
	Columns []string
}

// VerifySchema checks that every declared table exists with at least the
// declared columns. Missing pieces are reported together as ErrSchemaMismatch;
// failures to run the check itself are ErrStorageUnavailable.
func VerifySchema(ctx context.Context, db *sql.DB, tables []Table) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return Unavailable("verify schema", err)
	}
	defer conn.Close()

	var problems []string
	for _, t := range tables {
		have, err := tableColumns(ctx, conn, t.Name)
		if err != nil {
			return Unavailable("verify schema", err)
		}
		if len(have) == 0 {
			problems = append(problems, fmt.Sprintf("table %q not found", t.Name))
			continue
		}
		for _, c := range t.Columns {
			if !have[strings.ToLower(c)] {
				problems = append(problems, fmt.Sprintf("column %s.%s not found", t.Name, c))
			}
		}
	}
	if len(problems) > 0 {
		return SchemaMismatch("verify schema", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}
