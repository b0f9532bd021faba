// Package harness runs conformance scenarios for the query engine.
//
// A scenario loads a fixture database, registers a script of DEFINE and
// ALIAS statements, runs named FIND queries and checks the outcome with
// assertions. The compiled SQL of every query can be compared against a
// golden file.
//
// # Scenario Format
//
//	name: mother_rule
//	description: "Rules expand into joins over base tables"
//	fixture: fixture.sql        # optional; the built-in fixture by default
//	schema: schema.cue          # optional; introspected from the fixture by default
//	bind_params: false
//	script: |
//	  DEFINE Mother(?Child, ?Mother)
//	  WHERE relations(from_id=?Child, to_id=?Mother, type="Mother");
//	queries:
//	  - name: mothers
//	    find: FIND ?x, ?y WHERE Mother(Child=?x, Mother=?y);
//	assertions:
//	  - type: row_count
//	    query: mothers
//	    count: 7
//	  - type: rows_contain
//	    query: mothers
//	    rows:
//	      - { x: 4, y: 1 }
//
// # Assertion Types
//
//   - row_count: the query returned exactly count rows
//   - rows_contain: every listed row matches some result row (subset of columns)
//   - rows_equal: the result rows equal the listed rows, in order
//   - columns: the result columns, in order
//   - compile_error: the query failed to compile with the given error code
//   - sql_contains: the compiled SQL contains the given text
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite database with query
// IDs from a sequence generator, so the compiled SQL is byte-identical
// across runs and can be snapshotted with goldie:
//
//	go test ./internal/harness -update
package harness
