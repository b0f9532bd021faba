// Package ast defines the abstract syntax tree of the drolta query language.
//
// The tree is produced by package parser and consumed by the rule registry
// and the SQL compiler:
//
//	[DSL text] → [parser] → [ast] → [registry] (DEFINE, ALIAS)
//	                              → [querysql] (FIND) → SQL text + params
//
// SEALED INTERFACES:
//
// Node, Statement, Expression and Value are sealed interfaces using the
// marker method pattern. Only types in this package can implement them,
// which lets the compiler switch over them exhaustively:
//
//	switch e := expr.(type) {
//	case *PredicateCall:
//	    // relation or rule reference
//	case *Comparison:
//	    // filter on a bound variable
//	}
//
// ERRORS:
//
// Every compile-time failure in the pipeline is a *CompileError carrying an
// ErrorCode and, where known, the source position of the offending token.
// Use the Is* helpers (IsSyntaxError, IsUnboundVariable, ...) to classify
// wrapped errors.
package ast
