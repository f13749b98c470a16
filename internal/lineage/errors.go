// Package lineage implements the graph store backing a column-level
// data-lineage graph: nodes (Column/Table/Expression), typed edges, and
// the indexes and queries built over them.
package lineage

import "errors"

// Sentinel errors for the graph store's failure taxonomy (spec §7).
var (
	// ErrUnknownEndpoint is returned by AddEdge when either endpoint is
	// not already present in the graph. This is a programming error: the
	// caller is expected to create both endpoint nodes before linking them.
	ErrUnknownEndpoint = errors.New("lineage: edge endpoint not found in graph")

	// ErrNotFound is returned by accessors (GetNode, GetEdge) when the
	// requested ID does not exist.
	ErrNotFound = errors.New("lineage: id not found")
)
