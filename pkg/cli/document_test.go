package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGraph(t *testing.T) {
	for _, name := range []string{"chain.yaml", "chain.json"} {
		t.Run(name, func(t *testing.T) {
			g, err := ReadGraph(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, 3, g.NodeCount())
			assert.Equal(t, 4, g.EdgeCount())

			e, ok := g.Edge(graph.MustEdgeAddress("e1"))
			require.True(t, ok)
			assert.Equal(t, graph.MustNodeAddress("n1"), e.Src)
			assert.Equal(t, graph.MustNodeAddress("n2"), e.Dst)
			assert.Equal(t, int64(1577836800000), e.TimestampMs)

			assert.Len(t, g.InEdges(graph.MustNodeAddress("sink")), 3)
		})
	}
}

func TestReadGraphErrors(t *testing.T) {
	_, err := ReadGraph("")
	assert.Error(t, err)

	_, err = ReadGraph(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"unknown src", "nodes: [[a]]\nedges: [{address: [e], src: [b], dst: [a]}]", graph.ErrNodeNotFound},
		{"conflicting edge", "nodes: [[a], [b]]\nedges: [{address: [e], src: [a], dst: [b]}, {address: [e], src: [b], dst: [a]}]", graph.ErrEdgeConflict},
		{"invalid node part", "nodes: [[\"a\\0\"]]", graph.ErrInvalidAddress},
		{"invalid edge part", "nodes: [[a]]\nedges: [{address: [\"e\\0\"], src: [a], dst: [a]}]", graph.ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGraph([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseGraph([]byte("nodes: [[a"))
		assert.Error(t, err)
	})
}

func TestParseGraphEmpty(t *testing.T) {
	g, err := ParseGraph([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 0, g.NodeCount())
}

func TestParsePrefix(t *testing.T) {
	p, err := parsePrefix("github/user/")
	require.NoError(t, err)
	assert.Equal(t, graph.MustNodeAddress("github", "user"), p)

	p, err = parsePrefix("")
	require.NoError(t, err)
	assert.Equal(t, graph.NodeAddress(""), p)
}
