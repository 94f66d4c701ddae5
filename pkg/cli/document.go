package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mchmarny/credrank/pkg/graph"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a graph. JSON documents parse as YAML.
type Document struct {
	Nodes [][]string    `json:"nodes" yaml:"nodes"`
	Edges []DocumentEdge `json:"edges" yaml:"edges"`
}

// DocumentEdge is one edge of a Document.
type DocumentEdge struct {
	Address     []string `json:"address" yaml:"address"`
	Src         []string `json:"src" yaml:"src"`
	Dst         []string `json:"dst" yaml:"dst"`
	TimestampMs int64    `json:"timestampMs" yaml:"timestampMs"`
}

// ReadGraph loads the graph document at path.
func ReadGraph(path string) (*graph.Graph, error) {
	if path == "" {
		return nil, errors.New("graph path required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading graph file %s: %w", path, err)
	}
	g, err := ParseGraph(b)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	return g, nil
}

// ParseGraph builds a graph from document content.
func ParseGraph(b []byte) (*graph.Graph, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling graph document: %w", err)
	}
	return doc.Build()
}

// Build converts the document into a graph.
func (d *Document) Build() (*graph.Graph, error) {
	g := graph.New()
	for i, parts := range d.Nodes {
		n, err := graph.NewNodeAddress(parts...)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		g.AddNode(n)
	}

	for i, de := range d.Edges {
		addr, err := graph.NewEdgeAddress(de.Address...)
		if err != nil {
			return nil, fmt.Errorf("edge %d address: %w", i, err)
		}
		src, err := graph.NewNodeAddress(de.Src...)
		if err != nil {
			return nil, fmt.Errorf("edge %d src: %w", i, err)
		}
		dst, err := graph.NewNodeAddress(de.Dst...)
		if err != nil {
			return nil, fmt.Errorf("edge %d dst: %w", i, err)
		}
		if err := g.AddEdge(graph.Edge{Address: addr, Src: src, Dst: dst, TimestampMs: de.TimestampMs}); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return g, nil
}

// parsePrefix splits a slash separated prefix like "github/user".
func parsePrefix(s string) (graph.NodeAddress, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return graph.NewNodeAddress()
	}
	return graph.NewNodeAddress(strings.Split(s, "/")...)
}
