package ast

import (
	"fmt"
	"strings"

	"github.com/roach88/drolta/internal/ir"
)

// Pos is a 1-based line:column source position.
// The zero Pos is "unknown".
type Pos struct {
	Line int
	Col  int
}

// IsValid reports whether the position refers to real source text.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Node is any element of the syntax tree.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	Position() Pos
	node() // Marker method - seals interface to this package
}

// Statement is a top-level script statement: DEFINE, FIND or ALIAS.
type Statement interface {
	Node
	statementNode()
}

// Expression is one conjunct of a WHERE body.
//
// Expression types:
//   - PredicateCall: reference to a base table or a rule
//   - Comparison: filter on a variable bound elsewhere in the body
type Expression interface {
	Node
	expressionNode()
}

// Value is the right-hand side of a predicate argument: either a logic
// variable or a literal constant.
type Value interface {
	Node
	valueNode()
	String() string
}

// Variable is a logic variable reference. Name excludes the leading '?'.
type Variable struct {
	Name string
	Pos  Pos
}

func (v Variable) Position() Pos { return v.Pos }
func (Variable) node()           {}
func (Variable) valueNode()      {}

func (v Variable) String() string {
	return "?" + v.Name
}

// Literal is a typed constant. Literals filter rows; they are never unified.
type Literal struct {
	Value ir.IRValue
	Pos   Pos
}

func (l Literal) Position() Pos { return l.Pos }
func (Literal) node()           {}
func (Literal) valueNode()      {}

func (l Literal) String() string {
	return ir.String(l.Value)
}

// Argument binds one named column (or rule parameter) of a predicate call.
type Argument struct {
	Name  string
	Value Value
	Pos   Pos
}

func (a Argument) String() string {
	return a.Name + "=" + a.Value.String()
}

// PredicateCall applies a base table or rule to named arguments, e.g.
//
//	relations(from_id=?Child, to_id=?Mother, type="Mother")
type PredicateCall struct {
	Name string
	Args []Argument
	Pos  Pos
}

func (p *PredicateCall) Position() Pos { return p.Pos }
func (*PredicateCall) node()           {}
func (*PredicateCall) expressionNode() {}

func (p *PredicateCall) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(args, ", "))
}

// Arg returns the argument with the given name.
func (p *PredicateCall) Arg(name string) (Argument, bool) {
	for _, a := range p.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// CompareOp is a comparison operator usable in WHERE filters.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Comparison filters a bound variable against a literal or another variable:
//
//	(?age >= 18)
type Comparison struct {
	Left  Variable
	Op    CompareOp
	Right Value
	Pos   Pos
}

func (c *Comparison) Position() Pos { return c.Pos }
func (*Comparison) node()           {}
func (*Comparison) expressionNode() {}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// ResultVariable governs one output column of a FIND, or one formal
// parameter of a DEFINE.
type ResultVariable struct {
	VarName       string // without '?'
	AggregateName string // upper-case aggregate function, empty if none
	Alias         string // output name, empty if none
	Pos           Pos
}

func (r ResultVariable) Position() Pos { return r.Pos }
func (ResultVariable) node()           {}

// ExportName is the column name this variable is visible under: the alias
// when one is given, otherwise the variable name.
func (r ResultVariable) ExportName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.VarName
}

// IsAggregate reports whether the variable is wrapped in an aggregate.
func (r ResultVariable) IsAggregate() bool {
	return r.AggregateName != ""
}

func (r ResultVariable) String() string {
	s := "?" + r.VarName
	if r.AggregateName != "" {
		s = fmt.Sprintf("%s(%s)", r.AggregateName, s)
	}
	if r.Alias != "" {
		s = fmt.Sprintf("%s AS %q", s, r.Alias)
	}
	return s
}

// OrderTerm is a single ORDER BY entry.
type OrderTerm struct {
	Var        Variable
	Descending bool
}

func (t OrderTerm) String() string {
	if t.Descending {
		return t.Var.String() + " DESC"
	}
	return t.Var.String() + " ASC"
}

// OrderByExpression is an ordered list of sort terms.
type OrderByExpression struct {
	Terms []OrderTerm
	Pos   Pos
}

func (o *OrderByExpression) Position() Pos { return o.Pos }
func (*OrderByExpression) node()           {}

// GroupByExpression is an ordered list of grouping variables.
type GroupByExpression struct {
	Vars []Variable
	Pos  Pos
}

func (g *GroupByExpression) Position() Pos { return g.Pos }
func (*GroupByExpression) node()           {}

// LimitExpression caps the row count, applied after grouping and ordering.
type LimitExpression struct {
	Count     int64
	Offset    int64
	HasOffset bool
	Pos       Pos
}

func (l *LimitExpression) Position() Pos { return l.Pos }
func (*LimitExpression) node()           {}

// Tail holds the optional clauses shared by DEFINE and FIND.
type Tail struct {
	OrderBy *OrderByExpression
	GroupBy *GroupByExpression
	Limit   *LimitExpression
}

// IsEmpty reports whether none of the optional clauses are present.
func (t Tail) IsEmpty() bool {
	return t.OrderBy == nil && t.GroupBy == nil && t.Limit == nil
}

// DefineStatement registers a rule:
//
//	DEFINE Mother(?Child, ?Mother) WHERE relations(from_id=?Child, to_id=?Mother, type="Mother");
type DefineStatement struct {
	Name   string
	Params []ResultVariable
	Where  []Expression
	Tail
	Pos Pos
}

func (d *DefineStatement) Position() Pos { return d.Pos }
func (*DefineStatement) node()           {}
func (*DefineStatement) statementNode()  {}

// FindStatement is a query:
//
//	FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);
type FindStatement struct {
	Results []ResultVariable
	Where   []Expression
	Tail
	Pos Pos
}

func (f *FindStatement) Position() Pos { return f.Pos }
func (*FindStatement) node()           {}
func (*FindStatement) statementNode()  {}

// AliasStatement makes Name another reference to Target:
//
//	ALIAS characters AS people;
type AliasStatement struct {
	Target string
	Name   string
	Pos    Pos
}

func (a *AliasStatement) Position() Pos { return a.Pos }
func (*AliasStatement) node()           {}
func (*AliasStatement) statementNode()  {}
