package querysql

import (
	"strconv"
	"strings"

	"github.com/roach88/drolta/internal/ast"
)

// emit assembles the SELECT. Placeholders appear in text order: derived
// tables in FROM first, then WHERE.
func (b *builder) emit(results []ast.ResultVariable, tail ast.Tail) (*fragment, error) {
	var sb strings.Builder
	var params []any

	// SELECT
	sb.WriteString("SELECT ")
	columns := make([]string, 0, len(results))
	if len(results) == 0 {
		sb.WriteString("1")
	}
	for i, r := range results {
		expr, err := b.resolveVar(r.VarName, r.Pos, "result list")
		if err != nil {
			return nil, err
		}
		if r.IsAggregate() {
			expr = r.AggregateName + "(" + expr + ")"
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(expr)
		sb.WriteString(" AS ")
		sb.WriteString(quoteIdent(r.ExportName()))
		columns = append(columns, r.ExportName())
	}

	// FROM
	for i, a := range b.atoms {
		links := b.onLinks[i]
		switch {
		case i == 0:
			sb.WriteString(" FROM ")
		case len(links) > 0:
			sb.WriteString(" INNER JOIN ")
		default:
			sb.WriteString(", ")
		}

		if a.derived != nil {
			sb.WriteString("(")
			sb.WriteString(a.derived.sql)
			sb.WriteString(")")
			params = append(params, a.derived.params...)
		} else {
			sb.WriteString(quoteIdent(a.table))
		}
		sb.WriteString(" AS ")
		sb.WriteString(a.alias)

		if i > 0 && len(links) > 0 {
			sb.WriteString(" ON ")
			sb.WriteString(joinConditions(links))
		}
	}

	// WHERE: literal filters, links inside one relation, comparisons
	where := append([]condition{}, b.filters...)
	where = append(where, b.whereLinks...)
	for _, cmp := range b.comparisons {
		cond, err := b.compileComparison(cmp)
		if err != nil {
			return nil, err
		}
		where = append(where, cond)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(joinConditions(where))
		for _, cond := range where {
			params = append(params, cond.params...)
		}
	}

	// GROUP BY
	if tail.GroupBy != nil && len(tail.GroupBy.Vars) > 0 {
		exprs := make([]string, len(tail.GroupBy.Vars))
		for i, v := range tail.GroupBy.Vars {
			expr, err := b.resolveVar(v.Name, v.Pos, "GROUP BY")
			if err != nil {
				return nil, err
			}
			exprs[i] = expr
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(exprs, ", "))
	}

	// ORDER BY
	if tail.OrderBy != nil && len(tail.OrderBy.Terms) > 0 {
		exprs := make([]string, len(tail.OrderBy.Terms))
		for i, term := range tail.OrderBy.Terms {
			expr, err := b.resolveVar(term.Var.Name, term.Var.Pos, "ORDER BY")
			if err != nil {
				return nil, err
			}
			if term.Descending {
				exprs[i] = expr + " DESC"
			} else {
				exprs[i] = expr + " ASC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(exprs, ", "))
	}

	// LIMIT always last
	if tail.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(tail.Limit.Count, 10))
		if tail.Limit.HasOffset {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.FormatInt(tail.Limit.Offset, 10))
		}
	}

	return &fragment{sql: sb.String(), params: params, columns: columns}, nil
}

func joinConditions(conds []condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.sql
	}
	return strings.Join(parts, " AND ")
}

// quoteIdent double-quotes an SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// displayName strips the expansion suffix from a renamed rule-local
// variable.
func displayName(name string) string {
	if i := strings.IndexByte(name, '#'); i >= 0 {
		return name[:i]
	}
	return name
}
