// Package ir provides the literal value types carried by drolta queries.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps literal handling the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - IRValue is sealed: only IRNull, IRString, IRInt, IRFloat and IRBool
//   - Literals are never unified with logic variables; they only filter
//   - SQL rendering of a literal always uses single quotes for text, so a
//     literal can never be mistaken for a double-quoted identifier
package ir
