package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
)

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	records := sampleRecords()
	prev := BuildTables(records)

	changed := append(records[:0:0], records[1:]...)
	changed[1].End.Line = 8
	next := BuildTables(changed)

	delta := ComputeDelta(prev, next)
	require.False(t, delta.Empty())

	require.Len(t, delta.Added.Regions, 1)
	assert.Equal(t, 8, delta.Added.Regions[0].EndLine)
	require.Len(t, delta.Removed.Regions, 2)
	assert.Equal(t, "FunctionDecl.Prologue", delta.Removed.Regions[0].Detail)
	assert.Equal(t, 9, delta.Removed.Regions[1].EndLine)
	assert.Empty(t, delta.Added.Variables)
	assert.Empty(t, delta.Removed.Files)
}

func TestComputeDeltaIgnoresOrder(t *testing.T) {
	records := sampleRecords()
	reversed := make([]region.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}

	delta := ComputeDelta(BuildTables(records), BuildTables(reversed))
	assert.True(t, delta.Empty())
}
