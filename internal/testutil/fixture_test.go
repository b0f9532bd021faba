package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFixture_RowCounts(t *testing.T) {
	s := OpenFixture(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"SELECT COUNT(*) FROM characters", FixtureCharacters},
		{"SELECT COUNT(*) FROM houses", FixtureHouses},
		{"SELECT COUNT(*) FROM relations", FixtureRelations},
		{"SELECT COUNT(*) FROM relations WHERE type = 'Mother'", FixtureMotherEdges},
		{"SELECT COUNT(*) FROM characters WHERE house_id IS NULL", FixtureHouselessIDs},
	}
	for _, tt := range tests {
		var got int
		require.NoError(t, s.DB().QueryRowContext(ctx, tt.query).Scan(&got), tt.query)
		assert.Equal(t, tt.want, got, tt.query)
	}
}

func TestOpenFixture_Isolated(t *testing.T) {
	a := OpenFixture(t)
	b := OpenFixture(t)
	ctx := context.Background()

	require.NoError(t, a.ExecScript(ctx, "DELETE FROM relations"))

	var n int
	require.NoError(t, b.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM relations").Scan(&n))
	assert.Equal(t, FixtureRelations, n)
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("query")
	assert.Equal(t, "query-1", gen.Generate())
	assert.Equal(t, "query-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Current())

	gen.Reset()
	assert.Equal(t, "query-1", gen.Generate())
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	gen := NewSequenceGenerator("q")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen.Generate()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), gen.Current())
}
