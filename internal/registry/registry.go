// Package registry holds the rules and aliases defined on one engine.
//
// EngineData is mutated only by successful DEFINE and ALIAS statements and
// is read-only while a FIND is compiled. It is not safe for concurrent use.
package registry

import (
	"sort"

	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/catalog"
)

// Relation is what a predicate name resolves to.
//
// This is a sealed interface - only BaseTable and *RuleData implement it.
type Relation interface {
	relation()
}

// BaseTable is a table or view of the underlying store. Table is nil when
// no catalog is configured, in which case its columns are unknown.
type BaseTable struct {
	Name  string
	Table *catalog.Table
}

func (BaseTable) relation() {}

// RuleData is a registered rule. Immutable once registered.
type RuleData struct {
	Name    string
	Params  []ast.ResultVariable
	Body    []ast.Expression
	OrderBy *ast.OrderByExpression
	GroupBy *ast.GroupByExpression
	Limit   *ast.LimitExpression
	Pos     ast.Pos
}

func (*RuleData) relation() {}

// NewRuleData builds a RuleData from a DEFINE statement without validating it.
func NewRuleData(def *ast.DefineStatement) *RuleData {
	return &RuleData{
		Name:    def.Name,
		Params:  def.Params,
		Body:    def.Where,
		OrderBy: def.OrderBy,
		GroupBy: def.GroupBy,
		Limit:   def.Limit,
		Pos:     def.Pos,
	}
}

// Tail returns the rule's ORDER BY / GROUP BY / LIMIT clauses.
func (r *RuleData) Tail() ast.Tail {
	return ast.Tail{OrderBy: r.OrderBy, GroupBy: r.GroupBy, Limit: r.Limit}
}

// IsSimple reports whether calls to the rule can be inlined: no aggregate
// parameters and no ORDER BY, GROUP BY or LIMIT.
func (r *RuleData) IsSimple() bool {
	if !r.Tail().IsEmpty() {
		return false
	}
	for _, p := range r.Params {
		if p.IsAggregate() {
			return false
		}
	}
	return true
}

// Param returns the formal parameter a call-site argument name refers to.
// Parameters are named by their alias when one is given, otherwise by
// their variable name.
func (r *RuleData) Param(name string) (ast.ResultVariable, bool) {
	for _, p := range r.Params {
		if p.ExportName() == name {
			return p, true
		}
	}
	return ast.ResultVariable{}, false
}

// ParamNames returns the parameter names in declaration order.
func (r *RuleData) ParamNames() []string {
	names := make([]string, len(r.Params))
	for i, p := range r.Params {
		names[i] = p.ExportName()
	}
	return names
}

// Calls returns the distinct predicate names referenced by the body, in
// order of first appearance.
func (r *RuleData) Calls() []string {
	var names []string
	seen := make(map[string]bool)
	for _, expr := range r.Body {
		call, ok := expr.(*ast.PredicateCall)
		if !ok || seen[call.Name] {
			continue
		}
		seen[call.Name] = true
		names = append(names, call.Name)
	}
	return names
}

// EngineData is the rule registry of one engine.
type EngineData struct {
	Aliases map[string]string
	Rules   map[string]*RuleData
}

// New returns an empty registry.
func New() *EngineData {
	return &EngineData{
		Aliases: make(map[string]string),
		Rules:   make(map[string]*RuleData),
	}
}

// Clone returns a copy whose maps can be changed without affecting d.
// Rules are shared; they are never modified after registration.
func (d *EngineData) Clone() *EngineData {
	c := New()
	for k, v := range d.Aliases {
		c.Aliases[k] = v
	}
	for k, v := range d.Rules {
		c.Rules[k] = v
	}
	return c
}

// Define validates and registers a rule.
//
// Fails with a duplicate-rule error when the name is already a rule, an
// alias, or a table of cat, and with an unbound-variable error when a
// parameter, comparison, ORDER BY or GROUP BY variable is not bound by a
// predicate call in the body. A body that calls the rule itself is a
// recursion-limit error. cat may be nil.
func (d *EngineData) Define(def *ast.DefineStatement, cat catalog.Catalog) (*RuleData, error) {
	if err := d.checkNameFree(def.Name, def.Pos, cat); err != nil {
		return nil, err
	}
	if err := ast.CheckBound(def.Params, def.Where, def.Tail); err != nil {
		return nil, err
	}

	rule := NewRuleData(def)
	for _, expr := range rule.Body {
		if call, ok := expr.(*ast.PredicateCall); ok && call.Name == rule.Name {
			return nil, ast.Errorf(ast.ErrCodeRecursionLimit, call.Pos,
				"rule %s references itself; recursive rules are not supported", rule.Name)
		}
	}

	d.Rules[rule.Name] = rule
	return rule, nil
}

// AddAlias registers name as another reference to target.
//
// Fails with a duplicate-rule error when name is taken, and with an
// unknown-relation error when target is not a rule, an alias or (with a
// catalog) a table. Without a catalog any target is accepted as a table.
func (d *EngineData) AddAlias(name, target string, pos ast.Pos, cat catalog.Catalog) error {
	if err := d.checkNameFree(name, pos, cat); err != nil {
		return err
	}
	if name == target {
		return ast.Errorf(ast.ErrCodeDuplicateRule, pos, "alias %s refers to itself", name)
	}
	if _, err := d.Resolve(target, pos, cat); err != nil {
		return err
	}
	d.Aliases[name] = target
	return nil
}

// Resolve returns the relation a predicate name refers to, following
// aliases. With a nil catalog any name that is not a rule resolves to a
// base table of unknown columns.
func (d *EngineData) Resolve(name string, pos ast.Pos, cat catalog.Catalog) (Relation, error) {
	canonical := name
	for hops := 0; ; hops++ {
		target, ok := d.Aliases[canonical]
		if !ok {
			break
		}
		if hops > len(d.Aliases) {
			return nil, ast.Errorf(ast.ErrCodeRecursionLimit, pos, "alias cycle through %s", name)
		}
		canonical = target
	}

	if rule, ok := d.Rules[canonical]; ok {
		return rule, nil
	}
	if cat == nil {
		return BaseTable{Name: canonical}, nil
	}
	if table, ok := cat.Table(canonical); ok {
		return BaseTable{Name: canonical, Table: table}, nil
	}

	if canonical != name {
		return nil, ast.Errorf(ast.ErrCodeUnknownRelation, pos,
			"%s (alias of %s) is neither a rule nor a known table", canonical, name)
	}
	return nil, ast.Errorf(ast.ErrCodeUnknownRelation, pos, "%s is neither a rule nor a known table", name)
}

// Rule returns the rule registered under name. Aliases are not followed.
func (d *EngineData) Rule(name string) (*RuleData, bool) {
	r, ok := d.Rules[name]
	return r, ok
}

// SortedRules returns all registered rules sorted by name.
func (d *EngineData) SortedRules() []*RuleData {
	rules := make([]*RuleData, 0, len(d.Rules))
	for _, r := range d.Rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Name < rules[j].Name
	})
	return rules
}

// Link resolves every predicate called by a registered rule and checks
// its argument names against the table columns or rule parameters. It
// returns one error per failing call, rules in name order. Rules may call
// rules registered after them, so this is only meaningful once all
// scripts are in. cat may be nil.
func (d *EngineData) Link(cat catalog.Catalog) []error {
	var errs []error
	for _, rule := range d.SortedRules() {
		for _, expr := range rule.Body {
			call, ok := expr.(*ast.PredicateCall)
			if !ok {
				continue
			}
			if err := d.linkCall(call, cat); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func (d *EngineData) linkCall(call *ast.PredicateCall, cat catalog.Catalog) error {
	rel, err := d.Resolve(call.Name, call.Pos, cat)
	if err != nil {
		return err
	}
	for _, arg := range call.Args {
		switch r := rel.(type) {
		case BaseTable:
			if r.Table != nil && !r.Table.HasColumn(arg.Name) {
				return ast.Errorf(ast.ErrCodeArgument, arg.Pos, "table %s has no column %q", r.Name, arg.Name)
			}
		case *RuleData:
			if _, ok := r.Param(arg.Name); !ok {
				return ast.Errorf(ast.ErrCodeArgument, arg.Pos,
					"rule %s has no parameter %q (parameters: %v)", r.Name, arg.Name, r.ParamNames())
			}
		}
	}
	return nil
}

func (d *EngineData) checkNameFree(name string, pos ast.Pos, cat catalog.Catalog) error {
	if _, ok := d.Rules[name]; ok {
		return ast.Errorf(ast.ErrCodeDuplicateRule, pos, "rule %s is already defined", name)
	}
	if _, ok := d.Aliases[name]; ok {
		return ast.Errorf(ast.ErrCodeDuplicateRule, pos, "%s is already defined as an alias", name)
	}
	if cat != nil {
		if _, ok := cat.Table(name); ok {
			return ast.Errorf(ast.ErrCodeDuplicateRule, pos, "%s is the name of a base table", name)
		}
	}
	return nil
}
