package lineage

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is the number of lock partitions backing the graph's indexes
// (spec §5, §9): a power of two so the partition mask avoids a modulo.
const shardCount = 16

// indexShard is one partition of the reader-writer lock scheme. Each shard
// owns a slice of the (table,column) and table-name indexes plus the
// adjacency lists for the node/edge keys that hash into it, so a write to
// one shard never blocks a reader or writer on another (spec §5: "No
// operation holds locks across two partitions, so the lock graph is
// acyclic").
type indexShard struct {
	mu          sync.RWMutex
	byColumnKey map[columnKey]NodeID
	byTableName map[string]NodeID
	byEdgeKey   map[edgeKey]EdgeID
	outEdges    map[NodeID][]EdgeID
	inEdges     map[NodeID][]EdgeID
}

func newIndexShard() *indexShard {
	return &indexShard{
		byColumnKey: make(map[columnKey]NodeID),
		byTableName: make(map[string]NodeID),
		byEdgeKey:   make(map[edgeKey]EdgeID),
		outEdges:    make(map[NodeID][]EdgeID),
		inEdges:     make(map[NodeID][]EdgeID),
	}
}

// LineageGraph is the containing aggregate for one analyzed script (or one
// merged batch): nodes, edges, and the indexes over them (spec §3).
//
// Representation: a dense, append-only slice of Node structs and one of
// Edge structs, indexed by ID (one struct per element, not parallel
// per-field arrays), with hash indexes layered above it for name/kind/adjacency lookups. The
// hash indexes are split across shardCount lock partitions so concurrent
// writers to unrelated keys don't contend (spec §5).
type LineageGraph struct {
	ids     idPool
	strings *interner

	growMu sync.RWMutex
	nodes  []Node
	edges  []Edge
	// removed marks compacted-away slots; IDs are never reused (spec I4)
	// and never renumbered (spec §4.2: "preserves all remaining IDs").
	removedNode map[NodeID]bool

	shards [shardCount]*indexShard

	typeMu sync.RWMutex
	byType map[NodeKind]map[NodeID]struct{}

	SourceSQL string
	CreatedAt time.Time
	Metadata  map[string]any
}

// NewLineageGraph returns an empty graph, ready to be populated while a
// script is walked (spec §3 Lifecycle).
func NewLineageGraph(sourceSQL string) *LineageGraph {
	g := &LineageGraph{
		strings:     newInterner(),
		removedNode: make(map[NodeID]bool),
		byType:      make(map[NodeKind]map[NodeID]struct{}),
		SourceSQL:   sourceSQL,
		CreatedAt:   time.Now(),
		Metadata:    make(map[string]any),
	}
	for i := range g.shards {
		g.shards[i] = newIndexShard()
	}
	for _, k := range []NodeKind{NodeKindColumn, NodeKindTable, NodeKindExpression} {
		g.byType[k] = make(map[NodeID]struct{})
	}
	return g
}

// hashString hashes a string to the 64-bit space used for shard selection.
func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// shardIndex masks a hash down to a shard slot. The original C# source
// computed `key & LockPartitions - 1` and relied on operator precedence,
// which in a language where `&` binds tighter than `-` would (and did,
// per spec.md's Open Questions) mask against the wrong operand. The
// intended mask is `(count - 1)`, applied explicitly here.
func shardIndex(h uint64) int {
	return int(h & uint64(shardCount-1))
}

func (g *LineageGraph) shardForKey(s string) *indexShard {
	return g.shards[shardIndex(hashString(s))]
}

// shardForEdge partitions edge operations by hash of source XOR target
// (spec §5: "source-XOR-target for edge ops").
func (g *LineageGraph) shardForEdge(src, tgt NodeID) *indexShard {
	return g.shards[shardIndex(uint64(src)^uint64(tgt))]
}

func (g *LineageGraph) intern(s string) string { return g.strings.intern(s) }

// appendNode grows the node slice and returns the new node's ID. Growth is
// the only critical section shared across all shards; it is O(1) amortized
// (spec §4.2: "Out-of-budget growth must transparently resize arrays").
func (g *LineageGraph) appendNode(n Node) NodeID {
	g.growMu.Lock()
	defer g.growMu.Unlock()
	id := g.ids.newNodeID(n.Kind.String(), n.Name)
	n.ID = id
	g.nodes = append(g.nodes, n)
	return id
}

func (g *LineageGraph) appendEdge(e Edge) EdgeID {
	g.growMu.Lock()
	defer g.growMu.Unlock()
	id := g.ids.newEdgeID()
	e.ID = id
	g.edges = append(g.edges, e)
	return id
}

func (g *LineageGraph) nodeAt(id NodeID) (*Node, bool) {
	g.growMu.RLock()
	defer g.growMu.RUnlock()
	if id == 0 || int(id) > len(g.nodes) {
		return nil, false
	}
	n := &g.nodes[id-1]
	if n.ID != id || g.removedNode[id] {
		return nil, false
	}
	return n, true
}

func (g *LineageGraph) edgeAt(id EdgeID) (*Edge, bool) {
	g.growMu.RLock()
	defer g.growMu.RUnlock()
	if id == 0 || int(id) > len(g.edges) {
		return nil, false
	}
	e := &g.edges[id-1]
	if e.ID != id {
		return nil, false
	}
	return e, true
}

func (g *LineageGraph) markType(kind NodeKind, id NodeID) {
	g.typeMu.Lock()
	defer g.typeMu.Unlock()
	g.byType[kind][id] = struct{}{}
}

func (g *LineageGraph) unmarkType(kind NodeKind, id NodeID) {
	g.typeMu.Lock()
	defer g.typeMu.Unlock()
	delete(g.byType[kind], id)
}

// ColumnFlags carries the optional, variant-specific attributes of a
// Column node (spec §3).
type ColumnFlags struct {
	Nullable bool
	Computed bool
}

// AddColumnNode creates (or returns the existing) Column node for
// (table,name). Idempotent per spec I2/P2.
func (g *LineageGraph) AddColumnNode(table, name, dtype string, flags ColumnFlags) NodeID {
	table = g.intern(table)
	name = g.intern(name)
	dtype = g.intern(dtype)
	key := columnKey{table: canonicalKey(table), column: canonicalKey(name)}

	shard := g.shardForKey(key.table + "." + key.column)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if id, ok := shard.byColumnKey[key]; ok {
		return id
	}

	id := g.appendNode(Node{
		Kind:       NodeKindColumn,
		Name:       name,
		ObjectName: name,
		TableOwner: table,
		DataType:   dtype,
		IsNullable: flags.Nullable,
		IsComputed: flags.Computed,
		Metadata:   make(map[string]any),
	})
	shard.byColumnKey[key] = id
	g.markType(NodeKindColumn, id)
	return id
}

// AddTableNode creates (or returns the existing) Table node for name.
// The first-seen kind is preserved unless the caller updates metadata
// directly (spec §4.2).
func (g *LineageGraph) AddTableNode(name string, kind TableKind, alias, definition string) NodeID {
	name = g.intern(name)
	alias = g.intern(alias)
	canon := canonicalKey(name)

	shard := g.shardForKey(canon)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if id, ok := shard.byTableName[canon]; ok {
		if alias != "" {
			if n, ok := g.nodeAt(id); ok {
				g.growMu.Lock()
				n.Alias = alias
				g.growMu.Unlock()
			}
		}
		return id
	}

	id := g.appendNode(Node{
		Kind:       NodeKindTable,
		Name:       name,
		ObjectName: name,
		TableType:  kind,
		Alias:      alias,
		Definition: definition,
		Metadata:   make(map[string]any),
	})
	shard.byTableName[canon] = id
	g.markType(NodeKindTable, id)
	return id
}

// AddExpressionNode always creates a new node: expressions are
// intentionally unique per occurrence (spec §4.2), never deduplicated.
func (g *LineageGraph) AddExpressionNode(name, sqlText string, kind ExpressionKind, resultType, owner string) NodeID {
	id := g.appendNode(Node{
		Kind:           NodeKindExpression,
		Name:           g.intern(name),
		ExpressionKind: kind,
		Expression:     sqlText,
		ResultType:     g.intern(resultType),
		OwningContext:  g.intern(owner),
		Metadata:       make(map[string]any),
	})
	g.markType(NodeKindExpression, id)
	return id
}

// AttachColumnToTable appends columnID to tableID's column list if it is
// not already present (spec §4.2, invariant I3).
func (g *LineageGraph) AttachColumnToTable(tableID, columnID NodeID) {
	g.growMu.Lock()
	defer g.growMu.Unlock()
	if int(tableID) == 0 || int(tableID) > len(g.nodes) {
		return
	}
	t := &g.nodes[tableID-1]
	for _, c := range t.Columns {
		if c == columnID {
			return
		}
	}
	t.Columns = append(t.Columns, columnID)
	if int(columnID) > 0 && int(columnID) <= len(g.nodes) {
		g.nodes[columnID-1].TableOwner = t.Name
	}
}

// AddEdge creates (or returns the existing) edge for (src,tgt,type).
// Re-adding an identical edge is a no-op except that operation/sqlText may
// be refreshed (spec I2). Fails with ErrUnknownEndpoint if either node is
// absent (spec I1, §4.2, §7).
func (g *LineageGraph) AddEdge(src, tgt NodeID, typ EdgeType, operation, sqlText string) (EdgeID, error) {
	if _, ok := g.nodeAt(src); !ok {
		return 0, ErrUnknownEndpoint
	}
	if _, ok := g.nodeAt(tgt); !ok {
		return 0, ErrUnknownEndpoint
	}
	operation = g.intern(operation)

	key := edgeKey{Source: src, Target: tgt, Type: typ}
	shard := g.shardForEdge(src, tgt)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if id, ok := shard.byEdgeKey[key]; ok {
		g.growMu.Lock()
		e := &g.edges[id-1]
		e.Operation = operation
		if sqlText != "" {
			e.SQLExpression = sqlText
		}
		g.growMu.Unlock()
		return id, nil
	}

	id := g.appendEdge(Edge{
		SourceID:      src,
		TargetID:      tgt,
		Type:          typ,
		Operation:     operation,
		SQLExpression: sqlText,
	})
	shard.byEdgeKey[key] = id
	shard.outEdges[src] = append(shard.outEdges[src], id)
	shard.inEdges[tgt] = append(shard.inEdges[tgt], id)
	return id, nil
}

// GetColumn returns the NodeID of the Column at (table,name) if present.
func (g *LineageGraph) GetColumn(table, name string) (NodeID, bool) {
	key := columnKey{table: canonicalKey(table), column: canonicalKey(name)}
	shard := g.shardForKey(key.table + "." + key.column)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	id, ok := shard.byColumnKey[key]
	return id, ok
}

// GetTable returns the NodeID of the Table named name if present.
func (g *LineageGraph) GetTable(name string) (NodeID, bool) {
	shard := g.shardForKey(canonicalKey(name))
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	id, ok := shard.byTableName[canonicalKey(name)]
	return id, ok
}

// GetNode returns a copy of the node data for id, or ErrNotFound.
func (g *LineageGraph) GetNode(id NodeID) (Node, error) {
	n, ok := g.nodeAt(id)
	if !ok {
		return Node{}, ErrNotFound
	}
	return *n, nil
}

// GetEdge returns a copy of the edge data for id, or ErrNotFound.
func (g *LineageGraph) GetEdge(id EdgeID) (Edge, error) {
	e, ok := g.edgeAt(id)
	if !ok {
		return Edge{}, ErrNotFound
	}
	return *e, nil
}

// OutEdges returns the IDs of edges leaving id, across whichever shards
// hold them. Since a given (src,tgt) pair always hashes to one shard,
// out-edges for one src can live in multiple shards when targets differ;
// this walks all shards to collect them.
func (g *LineageGraph) OutEdges(id NodeID) []EdgeID {
	var out []EdgeID
	for _, shard := range g.shards {
		shard.mu.RLock()
		out = append(out, shard.outEdges[id]...)
		shard.mu.RUnlock()
	}
	return out
}

// InEdges returns the IDs of edges arriving at id.
func (g *LineageGraph) InEdges(id NodeID) []EdgeID {
	var in []EdgeID
	for _, shard := range g.shards {
		shard.mu.RLock()
		in = append(in, shard.inEdges[id]...)
		shard.mu.RUnlock()
	}
	return in
}

// NodesOfType returns every node ID of the given kind.
func (g *LineageGraph) NodesOfType(kind NodeKind) []NodeID {
	g.typeMu.RLock()
	defer g.typeMu.RUnlock()
	out := make([]NodeID, 0, len(g.byType[kind]))
	for id := range g.byType[kind] {
		out = append(out, id)
	}
	return out
}

// FindPaths enumerates every simple path (as an ordered list of edge IDs)
// from src to tgt of length at most maxDepth, using bounded-depth BFS/DFS
// over outgoing edges. A per-path visited set guarantees termination on
// cycles (recursive CTEs, self-joins) without missing any distinct simple
// path (spec P5, I6, B4).
func (g *LineageGraph) FindPaths(src, tgt NodeID, maxDepth int) [][]EdgeID {
	var results [][]EdgeID
	if src == tgt {
		results = append(results, []EdgeID{})
	}
	if maxDepth <= 0 {
		return results
	}

	visited := map[NodeID]bool{src: true}
	var path []EdgeID

	var dfs func(cur NodeID, depth int)
	dfs = func(cur NodeID, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, eid := range g.OutEdges(cur) {
			e, ok := g.edgeAt(eid)
			if !ok {
				continue
			}
			next := e.TargetID
			if visited[next] {
				continue
			}
			path = append(path, eid)
			if next == tgt {
				cp := make([]EdgeID, len(path))
				copy(cp, path)
				results = append(results, cp)
			}
			visited[next] = true
			dfs(next, depth+1)
			visited[next] = false
			path = path[:len(path)-1]
		}
	}
	dfs(src, 0)
	return results
}

// CompactionReport summarizes a compact() pass for observability.
type CompactionReport struct {
	NodesRemoved    int
	StringsInterned int
}

// Compact removes nodes with zero incident edges (except Table nodes,
// which remain as structural containers even with no lineage edges of
// their own) and re-interns all string-valued attributes. IDs of
// surviving nodes/edges are preserved (spec §4.2, §3 Lifecycle, P4).
func (g *LineageGraph) Compact() CompactionReport {
	g.growMu.Lock()
	removed := 0
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.ID == 0 || g.removedNode[n.ID] {
			continue
		}
		if n.Kind == NodeKindTable {
			continue
		}
		if len(g.OutEdges(n.ID)) > 0 || len(g.InEdges(n.ID)) > 0 {
			continue
		}
		g.removedNode[n.ID] = true
		removed++
	}
	g.growMu.Unlock()

	for _, id := range func() []NodeID {
		ids := make([]NodeID, 0, removed)
		g.growMu.RLock()
		for nid, gone := range g.removedNode {
			if gone {
				ids = append(ids, nid)
			}
		}
		g.growMu.RUnlock()
		return ids
	}() {
		g.unmarkType(NodeKindColumn, id)
		g.unmarkType(NodeKindExpression, id)
		for _, shard := range g.shards {
			shard.mu.Lock()
			for k, v := range shard.byColumnKey {
				if v == id {
					delete(shard.byColumnKey, k)
				}
			}
			shard.mu.Unlock()
		}
	}

	g.growMu.Lock()
	for i := range g.nodes {
		t := &g.nodes[i]
		if t.Kind != NodeKindTable || len(t.Columns) == 0 {
			continue
		}
		kept := t.Columns[:0]
		for _, c := range t.Columns {
			if !g.removedNode[c] {
				kept = append(kept, c)
			}
		}
		t.Columns = kept
	}
	g.growMu.Unlock()

	g.strings.reset()
	reinterned := 0
	g.growMu.Lock()
	for i := range g.nodes {
		n := &g.nodes[i]
		n.Name = g.strings.intern(n.Name)
		n.TableOwner = g.strings.intern(n.TableOwner)
		n.DataType = g.strings.intern(n.DataType)
		reinterned += 3
	}
	for i := range g.edges {
		e := &g.edges[i]
		e.Operation = g.strings.intern(e.Operation)
		reinterned++
	}
	g.growMu.Unlock()

	return CompactionReport{NodesRemoved: removed, StringsInterned: reinterned}
}

// NodeCount and EdgeCount report the graph's current (uncompacted) size,
// used by callers sizing initial capacities for the next script (spec §5
// "node/edge capacities grow geometrically").
func (g *LineageGraph) NodeCount() int {
	g.growMu.RLock()
	defer g.growMu.RUnlock()
	n := 0
	for i := range g.nodes {
		if !g.removedNode[g.nodes[i].ID] {
			n++
		}
	}
	return n
}

func (g *LineageGraph) EdgeCount() int {
	g.growMu.RLock()
	defer g.growMu.RUnlock()
	return len(g.edges)
}

