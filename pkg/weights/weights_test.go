package weights

import (
	"math"
	"testing"

	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	src      = graph.MustNodeAddress("src")
	dst      = graph.MustNodeAddress("dst")
	testEdge = graph.Edge{
		Address: graph.MustEdgeAddress("edge"),
		Src:     src,
		Dst:     dst,
	}
)

func evaluateEdge(t *testing.T, w *Weights) EdgeWeight {
	t.Helper()
	ev, err := NewEvaluator(w)
	require.NoError(t, err)
	return ev.Edge(testEdge)
}

func TestEvaluatorDefaults(t *testing.T) {
	assert.Equal(t, EdgeWeight{Forwards: 1, Backwards: 1}, evaluateEdge(t, Empty()))
	assert.Equal(t, EdgeWeight{Forwards: 1, Backwards: 1}, evaluateEdge(t, nil))
}

func TestEvaluatorMatchesAllNodePrefixes(t *testing.T) {
	w := Empty()
	w.NodeWeights[graph.NodeAddress("")] = 99
	assert.Equal(t, EdgeWeight{Forwards: 99, Backwards: 99}, evaluateEdge(t, w))
}

func TestEvaluatorNodeWeightsAreDirectional(t *testing.T) {
	w := Empty()
	w.NodeWeights[src] = 2
	w.NodeWeights[dst] = 5
	assert.Equal(t, EdgeWeight{Forwards: 5, Backwards: 2}, evaluateEdge(t, w))
}

func TestEvaluatorMultipliesMatchingPrefixes(t *testing.T) {
	w := Empty()
	w.NodeWeights[graph.NodeAddress("")] = 2
	w.NodeWeights[dst] = 3
	w.EdgeWeights[graph.EdgeAddress("")] = EdgeWeight{Forwards: 4, Backwards: 5}
	w.EdgeWeights[testEdge.Address] = EdgeWeight{Forwards: 0.5, Backwards: 2}

	assert.Equal(t, EdgeWeight{Forwards: 2 * 3 * 4 * 0.5, Backwards: 2 * 5 * 2}, evaluateEdge(t, w))
}

func TestEvaluatorIgnoresUnmatchedWeights(t *testing.T) {
	without := evaluateEdge(t, Empty())

	w := Empty()
	w.NodeWeights[graph.MustNodeAddress("foo")] = 99
	w.EdgeWeights[graph.MustEdgeAddress("foo")] = EdgeWeight{Forwards: 14, Backwards: 19}
	assert.Equal(t, without, evaluateEdge(t, w))
}

func TestEvaluatorSnapshotsWeights(t *testing.T) {
	w := Empty()
	w.NodeWeights[dst] = 3
	ev, err := NewEvaluator(w)
	require.NoError(t, err)

	w.NodeWeights[dst] = 7
	assert.InDelta(t, 3.0, ev.Node(dst), 0)
	assert.InDelta(t, 3.0, ev.NodeEvaluator()(dst), 0)
	assert.Equal(t, ev.Edge(testEdge), ev.EdgeEvaluator()(testEdge))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *Weights)
	}{
		{"negative node weight", func(w *Weights) { w.NodeWeights[src] = -1 }},
		{"nan node weight", func(w *Weights) { w.NodeWeights[src] = math.NaN() }},
		{"infinite forwards", func(w *Weights) {
			w.EdgeWeights[testEdge.Address] = EdgeWeight{Forwards: math.Inf(1), Backwards: 1}
		}},
		{"negative backwards", func(w *Weights) {
			w.EdgeWeights[testEdge.Address] = EdgeWeight{Forwards: 1, Backwards: -0.5}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Empty()
			tt.setup(w)
			assert.ErrorIs(t, w.Validate(), ErrInvalidWeight)
			_, err := NewEvaluator(w)
			assert.ErrorIs(t, err, ErrInvalidWeight)
		})
	}
}

func TestCopy(t *testing.T) {
	w := Empty()
	w.NodeWeights[src] = 2
	c := w.Copy()
	c.NodeWeights[src] = 4
	assert.InDelta(t, 2.0, w.NodeWeights[src], 0)
}

func TestUniform(t *testing.T) {
	ev := Uniform(6, 3)
	assert.Equal(t, EdgeWeight{Forwards: 6, Backwards: 3}, ev(testEdge))
}
