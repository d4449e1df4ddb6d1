package hashembed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbed_DeterministicUnitVector(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "قوانين نيوتن")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "قوانين نيوتن")
	require.NoError(t, err)

	require.Len(t, a, DefaultDimension)
	assert.Equal(t, a, b, "同じテキストはビット単位で同じベクトル")
	assert.InDelta(t, 1.0, l2(a), 1e-6)
}

func TestEmbed_DifferentTextsDiffer(t *testing.T) {
	e := NewEmbedder(64)
	a := e.Vector("الحركة")
	b := e.Vector("السرعة")

	require.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.InDelta(t, 1.0, l2(b), 1e-6)

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	assert.Less(t, math.Abs(dot), 1.0)
}

func TestEmbed_EmptyText(t *testing.T) {
	v := NewEmbedder(8).Vector("")
	assert.InDelta(t, 1.0, l2(v), 1e-6)
}
