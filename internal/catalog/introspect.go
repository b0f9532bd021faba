package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB used for introspection.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspect reads table and column names from a SQLite database.
// Views are included; SQLite internal tables are skipped.
func Introspect(ctx context.Context, q Querier) (*Schema, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	schema := NewSchema()
	for _, name := range names {
		table, err := introspectTable(ctx, q, name)
		if err != nil {
			return nil, err
		}
		if err := schema.Add(table); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

func introspectTable(ctx context.Context, q Querier, name string) (*Table, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, fmt.Errorf("table info %q: %w", name, err)
	}
	defer rows.Close()

	table := &Table{Name: name}
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", name, err)
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", name, err)
	}
	return table, nil
}
