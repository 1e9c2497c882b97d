package gesture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseline_WarmUp(t *testing.T) {
	b := NewBaseline()
	for i := 0; i < BaselineMinSamples-1; i++ {
		b.Add(0.1)
		_, ok := b.Value()
		require.False(t, ok, "baseline set after %d samples", i+1)
	}

	b.Add(0.2)
	v, ok := b.Value()
	require.True(t, ok)
	require.InDelta(t, 0.11, v, 1e-9)
}

func TestBaseline_BoundedHistory(t *testing.T) {
	b := NewBaseline()
	for i := 0; i < BaselineCapacity; i++ {
		b.Add(0)
	}
	for i := 0; i < BaselineCapacity; i++ {
		b.Add(1)
	}

	require.Equal(t, BaselineCapacity, b.Samples())
	v, ok := b.Value()
	require.True(t, ok)
	require.InDelta(t, 1.0, v, 1e-9)

	b.Reset()
	_, ok = b.Value()
	require.False(t, ok)
	require.Zero(t, b.Samples())
}
