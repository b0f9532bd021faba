package querysql

import (
	"fmt"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/ir"
)

// occurrence is one column a variable is bound to.
type occurrence struct {
	atom   int
	column string
}

// condition is a rendered boolean SQL expression and its bind values.
type condition struct {
	sql    string
	params []any
}

// unify walks the atoms in order, turning literal arguments into filters
// and recording each variable's occurrences. Each variable's occurrences
// are then chained i to i+1. A link between two atoms becomes part of the
// later atom's ON clause; a link inside one atom goes to WHERE.
func (b *builder) unify() error {
	b.occurrences = make(map[string][]occurrence)
	b.onLinks = make(map[int][]condition)

	var order []string
	for i, a := range b.atoms {
		for _, arg := range a.args {
			if !arg.value.isVar() {
				cond, err := b.literalFilter(b.column(occurrence{atom: i, column: arg.column}), arg.value.literal)
				if err != nil {
					return err
				}
				b.filters = append(b.filters, cond)
				continue
			}

			name := b.canon(arg.value.variable)
			if _, seen := b.occurrences[name]; !seen {
				order = append(order, name)
			}
			b.occurrences[name] = append(b.occurrences[name], occurrence{atom: i, column: arg.column})
		}
	}

	for _, name := range order {
		occs := b.occurrences[name]
		for i := 0; i+1 < len(occs); i++ {
			from, to := occs[i], occs[i+1]
			link := condition{sql: fmt.Sprintf("%s = %s", b.column(from), b.column(to))}
			if from.atom == to.atom {
				b.whereLinks = append(b.whereLinks, link)
			} else {
				b.onLinks[to.atom] = append(b.onLinks[to.atom], link)
			}
		}
	}
	return nil
}

// column renders an occurrence as alias."column".
func (b *builder) column(o occurrence) string {
	return b.atoms[o.atom].alias + "." + quoteIdent(o.column)
}

// resolveVar returns the column expression of a variable's first
// occurrence.
func (b *builder) resolveVar(name string, pos ast.Pos, where string) (string, error) {
	occs := b.occurrences[b.canon(name)]
	if len(occs) == 0 {
		return "", ast.Errorf(ast.ErrCodeUnboundVariable, pos,
			"variable ?%s in %s is not bound by any predicate", displayName(name), where)
	}
	return b.column(occs[0]), nil
}

// literalFilter renders expr = literal, or expr IS NULL for null.
func (b *builder) literalFilter(expr string, v ir.IRValue) (condition, error) {
	if ir.IsNull(v) {
		return condition{sql: expr + " IS NULL"}, nil
	}
	lit, err := b.literal(v)
	if err != nil {
		return condition{}, err
	}
	lit.sql = expr + " = " + lit.sql
	return lit, nil
}

// literal renders a constant inline or as a placeholder.
func (b *builder) literal(v ir.IRValue) (condition, error) {
	if b.st.c.BindParameters && !ir.IsNull(v) {
		param, err := ir.ToParam(v)
		if err != nil {
			return condition{}, fmt.Errorf("convert literal: %w", err)
		}
		return condition{sql: "?", params: []any{param}}, nil
	}
	sql, err := ir.SQLLiteral(v)
	if err != nil {
		return condition{}, fmt.Errorf("render literal: %w", err)
	}
	return condition{sql: sql}, nil
}

// compileComparison renders a comparison filter. Equality against null
// becomes IS NULL / IS NOT NULL.
func (b *builder) compileComparison(cmp comparison) (condition, error) {
	left, right, op := cmp.left, cmp.right, cmp.op
	if !left.isVar() && right.isVar() {
		left, right, op = right, left, flip(op)
	}

	lhs, err := b.termSQL(left)
	if err != nil {
		return condition{}, err
	}

	if !right.isVar() && ir.IsNull(right.literal) {
		switch op {
		case ast.OpEq:
			return condition{sql: lhs.sql + " IS NULL", params: lhs.params}, nil
		case ast.OpNe:
			return condition{sql: lhs.sql + " IS NOT NULL", params: lhs.params}, nil
		}
	}

	rhs, err := b.termSQL(right)
	if err != nil {
		return condition{}, err
	}
	return condition{
		sql:    fmt.Sprintf("%s %s %s", lhs.sql, op, rhs.sql),
		params: append(lhs.params, rhs.params...),
	}, nil
}

func (b *builder) termSQL(t term) (condition, error) {
	if t.isVar() {
		col, err := b.resolveVar(t.variable, t.pos, "comparison")
		if err != nil {
			return condition{}, err
		}
		return condition{sql: col}, nil
	}
	return b.literal(t.literal)
}

// flip mirrors an operator so that a op b == b flip(op) a.
func flip(op ast.CompareOp) ast.CompareOp {
	switch op {
	case ast.OpLt:
		return ast.OpGt
	case ast.OpLe:
		return ast.OpGe
	case ast.OpGt:
		return ast.OpLt
	case ast.OpGe:
		return ast.OpLe
	default:
		return op
	}
}
