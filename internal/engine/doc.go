// Package engine ties the query language together: it parses scripts into
// the rule registry, compiles FIND queries to SQL and runs them through a
// caller-supplied Executor.
//
// Lifecycle:
//
//  1. ExecuteScript registers DEFINE and ALIAS statements. A script is
//     applied as a whole: if any statement fails, no rule from it is kept.
//  2. Query parses one FIND, compiles it and hands the SQL to the Executor.
//     Every compile error is returned before the Executor is called.
//  3. The returned Result owns the database cursor until Close. QueryFunc
//     closes it on every path.
//
// An Engine is not safe for concurrent use. The registry is mutated by
// ExecuteScript and read by Query; callers that share an Engine between
// goroutines must serialize access.
package engine
