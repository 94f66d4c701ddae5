package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddEdge(t *testing.T) {
	a, b := MustNodeAddress("a"), MustNodeAddress("b")
	e := Edge{Address: MustEdgeAddress("e"), Src: a, Dst: b, TimestampMs: 10}

	t.Run("success case", func(t *testing.T) {
		g := New().AddNode(a).AddNode(b)
		require.NoError(t, g.AddEdge(e))
		require.NoError(t, g.AddEdge(e))

		assert.Equal(t, 1, g.EdgeCount())
		got, ok := g.Edge(e.Address)
		require.True(t, ok)
		assert.Equal(t, e, got)
		assert.Equal(t, []Edge{e}, g.OutEdges(a))
		assert.Equal(t, []Edge{e}, g.InEdges(b))
		assert.Empty(t, g.InEdges(a))
	})

	t.Run("error cases", func(t *testing.T) {
		g := New().AddNode(a)
		assert.ErrorIs(t, g.AddEdge(e), ErrNodeNotFound)

		g.AddNode(b)
		require.NoError(t, g.AddEdge(e))

		conflict := e
		conflict.Dst = a
		assert.ErrorIs(t, g.AddEdge(conflict), ErrEdgeConflict)
	})
}

func TestGraphOrdering(t *testing.T) {
	g := New()
	for _, n := range []string{"c", "a", "b"} {
		g.AddNode(MustNodeAddress(n))
	}
	g.AddNode(MustNodeAddress("a"))
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, []NodeAddress{
		MustNodeAddress("a"),
		MustNodeAddress("b"),
		MustNodeAddress("c"),
	}, g.Nodes())

	a := MustNodeAddress("a")
	for _, name := range []string{"z", "m", "b"} {
		require.NoError(t, g.AddEdge(Edge{Address: MustEdgeAddress(name), Src: a, Dst: a}))
	}

	out := g.OutEdges(a)
	require.Len(t, out, 3)
	assert.Equal(t, MustEdgeAddress("b"), out[0].Address)
	assert.Equal(t, MustEdgeAddress("z"), out[2].Address)
	assert.Equal(t, out, g.InEdges(a))
	assert.Equal(t, out, g.Edges())
}

func TestGraphHasNode(t *testing.T) {
	g := New().AddNode(MustNodeAddress("x"))
	assert.True(t, g.HasNode(MustNodeAddress("x")))
	assert.False(t, g.HasNode(MustNodeAddress("y")))
}
