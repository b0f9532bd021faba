package querysql

import (
	"fmt"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/ir"
	"github.com/roach88/drolta/internal/registry"
)

// term is an argument value after expansion: a variable of the enclosing
// SELECT or a literal.
type term struct {
	variable string
	literal  ir.IRValue
	pos      ast.Pos
}

func (t term) isVar() bool {
	return t.literal == nil
}

// atom is one relation occurrence in a SELECT's FROM clause.
type atom struct {
	alias   string
	table   string    // base table name, empty for a derived table
	derived *fragment // rule compiled as a sub-select
	args    []atomArg
}

type atomArg struct {
	column string
	value  term
}

// comparison is a filter expression in WHERE.
type comparison struct {
	left  term
	op    ast.CompareOp
	right term
}

// scope maps variable names of a body to terms of the enclosing SELECT.
//
// The top-level body (and a derived table body) uses its names as is. An
// inlined rule body maps its parameters to the call-site values and every
// other name to a fresh variable, so locals of two calls to the same rule
// never meet.
type scope struct {
	inline   bool
	env      map[string]term
	instance int
}

func (s *scope) resolve(name string, pos ast.Pos) term {
	if !s.inline {
		return term{variable: name, pos: pos}
	}
	if t, ok := s.env[name]; ok {
		return t
	}
	t := term{variable: fmt.Sprintf("%s#%d", name, s.instance), pos: pos}
	s.env[name] = t
	return t
}

func (s *scope) value(v ast.Value) term {
	switch val := v.(type) {
	case ast.Variable:
		return s.resolve(val.Name, val.Pos)
	case ast.Literal:
		return term{literal: val.Value, pos: val.Pos}
	default:
		panic(fmt.Sprintf("unexpected value type %T", v))
	}
}

// builder accumulates one SELECT.
type builder struct {
	st          *compilation
	atoms       []*atom
	comparisons []comparison
	merged      map[string]string

	// filled by unify
	occurrences map[string][]occurrence
	filters     []condition
	whereLinks  []condition
	onLinks     map[int][]condition
}

func (b *builder) expandBody(body []ast.Expression, sc *scope, depth int) error {
	for _, expr := range body {
		switch e := expr.(type) {
		case *ast.PredicateCall:
			if err := b.expandCall(e, sc, depth); err != nil {
				return err
			}
		case *ast.Comparison:
			b.comparisons = append(b.comparisons, comparison{
				left:  sc.resolve(e.Left.Name, e.Left.Pos),
				op:    e.Op,
				right: sc.value(e.Right),
			})
		default:
			return fmt.Errorf("unsupported expression type: %T", expr)
		}
	}
	return nil
}

func (b *builder) expandCall(call *ast.PredicateCall, sc *scope, depth int) error {
	rel, err := b.st.data.Resolve(call.Name, call.Pos, b.st.c.Catalog)
	if err != nil {
		return err
	}

	switch r := rel.(type) {
	case registry.BaseTable:
		if r.Table != nil {
			for _, arg := range call.Args {
				if !r.Table.HasColumn(arg.Name) {
					return ast.Errorf(ast.ErrCodeArgument, arg.Pos,
						"table %s has no column %q", r.Name, arg.Name)
				}
			}
		}
		a := &atom{alias: b.st.nextAlias(), table: r.Name}
		for _, arg := range call.Args {
			a.args = append(a.args, atomArg{column: arg.Name, value: sc.value(arg.Value)})
		}
		b.atoms = append(b.atoms, a)
		return nil

	case *registry.RuleData:
		for _, arg := range call.Args {
			if _, ok := r.Param(arg.Name); !ok {
				return ast.Errorf(ast.ErrCodeArgument, arg.Pos,
					"rule %s has no parameter %q (parameters: %v)", r.Name, arg.Name, r.ParamNames())
			}
		}
		if depth+1 > b.st.c.maxDepth() {
			return ast.Errorf(ast.ErrCodeRecursionLimit, call.Pos,
				"rule expansion exceeded depth %d at %s; rules may be cyclic", b.st.c.maxDepth(), r.Name)
		}
		if r.IsSimple() {
			return b.inline(call, r, sc, depth+1)
		}
		return b.derive(call, r, sc, depth+1)

	default:
		return fmt.Errorf("unsupported relation type: %T", rel)
	}
}

// inline expands a simple rule's body in place.
func (b *builder) inline(call *ast.PredicateCall, r *registry.RuleData, sc *scope, depth int) error {
	inner := &scope{
		inline:   true,
		env:      make(map[string]term, len(r.Params)),
		instance: b.st.nextInstance(),
	}
	for _, arg := range call.Args {
		p, _ := r.Param(arg.Name)
		actual := sc.value(arg.Value)
		if prev, ok := inner.env[p.VarName]; ok {
			// Two parameters share one variable: the actuals must agree.
			if prev.isVar() && actual.isVar() {
				b.merge(prev.variable, actual.variable)
			} else {
				b.comparisons = append(b.comparisons, comparison{left: prev, op: ast.OpEq, right: actual})
			}
			continue
		}
		inner.env[p.VarName] = actual
	}
	return b.expandBody(r.Body, inner, depth)
}

// derive compiles a rule to a sub-select joined as a derived table whose
// columns are the parameters' export names.
func (b *builder) derive(call *ast.PredicateCall, r *registry.RuleData, sc *scope, depth int) error {
	a := &atom{alias: b.st.nextAlias()}

	sub, err := b.st.buildSelect(r.Params, r.Body, r.Tail(), depth)
	if err != nil {
		return err
	}
	a.derived = sub

	for _, arg := range call.Args {
		a.args = append(a.args, atomArg{column: arg.Name, value: sc.value(arg.Value)})
	}
	b.atoms = append(b.atoms, a)
	return nil
}

// merge makes two variables of this SELECT one.
func (b *builder) merge(a, c string) {
	ca, cc := b.canon(a), b.canon(c)
	if ca == cc {
		return
	}
	if b.merged == nil {
		b.merged = make(map[string]string)
	}
	b.merged[cc] = ca
}

// canon returns the representative of a variable's merge class.
func (b *builder) canon(name string) string {
	for {
		next, ok := b.merged[name]
		if !ok {
			return name
		}
		name = next
	}
}
