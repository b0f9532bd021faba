package ast

import "strings"

// Aggregates lists the aggregate functions accepted in result position.
var Aggregates = []string{"COUNT", "SUM", "AVG", "MIN", "MAX", "TOTAL", "GROUP_CONCAT"}

// LookupAggregate returns the canonical (upper-case) spelling of an
// aggregate function name, matched case-insensitively.
func LookupAggregate(name string) (string, bool) {
	upper := strings.ToUpper(name)
	for _, a := range Aggregates {
		if a == upper {
			return a, true
		}
	}
	return "", false
}

// BoundVariables returns the variables bound by predicate calls in body,
// mapped to the position of their first binding occurrence.
// Comparisons never bind a variable; they only constrain one.
func BoundVariables(body []Expression) map[string]Pos {
	bound := make(map[string]Pos)
	for _, expr := range body {
		call, ok := expr.(*PredicateCall)
		if !ok {
			continue
		}
		for _, arg := range call.Args {
			v, ok := arg.Value.(Variable)
			if !ok {
				continue
			}
			if _, seen := bound[v.Name]; !seen {
				bound[v.Name] = v.Pos
			}
		}
	}
	return bound
}

// CheckBound verifies that every variable used outside predicate arguments
// (result/param list, comparisons, ORDER BY, GROUP BY) is bound by body.
// Returns an ErrCodeUnboundVariable error for the first offender.
func CheckBound(results []ResultVariable, body []Expression, tail Tail) error {
	bound := BoundVariables(body)

	check := func(name string, pos Pos, where string) error {
		if _, ok := bound[name]; ok {
			return nil
		}
		return Errorf(ErrCodeUnboundVariable, pos,
			"variable ?%s in %s is not bound by any predicate in WHERE", name, where)
	}

	for _, r := range results {
		if err := check(r.VarName, r.Pos, "result list"); err != nil {
			return err
		}
	}
	for _, expr := range body {
		cmp, ok := expr.(*Comparison)
		if !ok {
			continue
		}
		if err := check(cmp.Left.Name, cmp.Left.Pos, "comparison"); err != nil {
			return err
		}
		if v, ok := cmp.Right.(Variable); ok {
			if err := check(v.Name, v.Pos, "comparison"); err != nil {
				return err
			}
		}
	}
	if tail.OrderBy != nil {
		for _, term := range tail.OrderBy.Terms {
			if err := check(term.Var.Name, term.Var.Pos, "ORDER BY"); err != nil {
				return err
			}
		}
	}
	if tail.GroupBy != nil {
		for _, v := range tail.GroupBy.Vars {
			if err := check(v.Name, v.Pos, "GROUP BY"); err != nil {
				return err
			}
		}
	}
	return nil
}
