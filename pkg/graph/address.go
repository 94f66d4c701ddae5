package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// separator terminates every part of an encoded address. It sorts below any
// other byte, so comparing encoded strings is the same as comparing the part
// sequences lexicographically.
const separator = "\x00"

// ErrInvalidAddress is returned when an address part can not be encoded.
var ErrInvalidAddress = errors.New("invalid address")

// NodeAddress identifies a node. The zero value is the empty address, which is
// a prefix of every other node address.
type NodeAddress string

// EdgeAddress identifies an edge.
type EdgeAddress string

// NewNodeAddress creates a node address from its parts.
func NewNodeAddress(parts ...string) (NodeAddress, error) {
	s, err := encode(parts)
	if err != nil {
		return "", err
	}
	return NodeAddress(s), nil
}

// MustNodeAddress is like NewNodeAddress but panics on invalid parts.
func MustNodeAddress(parts ...string) NodeAddress {
	a, err := NewNodeAddress(parts...)
	if err != nil {
		panic(err)
	}
	return a
}

// NewEdgeAddress creates an edge address from its parts.
func NewEdgeAddress(parts ...string) (EdgeAddress, error) {
	s, err := encode(parts)
	if err != nil {
		return "", err
	}
	return EdgeAddress(s), nil
}

// MustEdgeAddress is like NewEdgeAddress but panics on invalid parts.
func MustEdgeAddress(parts ...string) EdgeAddress {
	a, err := NewEdgeAddress(parts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Parts returns a copy of the address parts.
func (a NodeAddress) Parts() []string { return decode(string(a)) }

// HasPrefix reports whether p is a part-wise prefix of a.
func (a NodeAddress) HasPrefix(p NodeAddress) bool { return strings.HasPrefix(string(a), string(p)) }

// Compare orders addresses lexicographically by part sequence.
func (a NodeAddress) Compare(b NodeAddress) int { return strings.Compare(string(a), string(b)) }

// Append returns a new address with the given parts added at the end.
func (a NodeAddress) Append(parts ...string) (NodeAddress, error) {
	s, err := encode(parts)
	if err != nil {
		return "", err
	}
	return a + NodeAddress(s), nil
}

func (a NodeAddress) String() string { return "NodeAddress" + format(string(a)) }

// Parts returns a copy of the address parts.
func (a EdgeAddress) Parts() []string { return decode(string(a)) }

// HasPrefix reports whether p is a part-wise prefix of a.
func (a EdgeAddress) HasPrefix(p EdgeAddress) bool { return strings.HasPrefix(string(a), string(p)) }

// Compare orders addresses lexicographically by part sequence.
func (a EdgeAddress) Compare(b EdgeAddress) int { return strings.Compare(string(a), string(b)) }

func (a EdgeAddress) String() string { return "EdgeAddress" + format(string(a)) }

func encode(parts []string) (string, error) {
	var b strings.Builder
	for i, p := range parts {
		if strings.Contains(p, separator) {
			return "", fmt.Errorf("part %d (%q) contains NUL: %w", i, p, ErrInvalidAddress)
		}
		b.WriteString(p)
		b.WriteString(separator)
	}
	return b.String(), nil
}

func decode(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, separator)
	return parts[:len(parts)-1]
}

func format(s string) string {
	parts := decode(s)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strconv.Quote(p)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
