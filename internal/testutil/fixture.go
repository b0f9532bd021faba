// Package testutil provides fixtures shared by package tests: an embedded
// sample database and deterministic query-ID generators.
package testutil

import (
	"context"
	_ "embed"
	"testing"

	"github.com/roach88/drolta/internal/store"
)

// FixtureSQL creates and fills the characters, houses and relations tables.
//
//go:embed testdata/fixture.sql
var FixtureSQL string

// Fixture row counts.
const (
	FixtureCharacters   = 17
	FixtureHouses       = 5
	FixtureRelations    = 29
	FixtureMotherEdges  = 7
	FixtureHouselessIDs = 3
)

// OpenFixture opens an in-memory store loaded with FixtureSQL.
// The store is closed when the test ends.
func OpenFixture(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open fixture store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := LoadFixture(context.Background(), s); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return s
}

// LoadFixture runs FixtureSQL against s.
func LoadFixture(ctx context.Context, s *store.Store) error {
	return s.ExecScript(ctx, FixtureSQL)
}
