package lineage

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// interner deduplicates small strings so that equal-valued strings compare
// by reference within one graph (spec I5). It is keyed per graph instance
// so compaction can be scoped to that instance (spec §9 Design Notes),
// never a process-wide singleton.
type interner struct {
	mu   sync.RWMutex
	pool map[string]string
}

func newInterner() *interner {
	return &interner{pool: make(map[string]string, 256)}
}

// intern returns the canonical stored instance for s, inserting it if this
// is the first occurrence. Safe for concurrent callers (spec §4.1).
func (p *interner) intern(s string) string {
	p.mu.RLock()
	if v, ok := p.pool[s]; ok {
		p.mu.RUnlock()
		return v
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.pool[s]; ok {
		return v
	}
	p.pool[s] = s
	return s
}

// reset clears the pool, used by LineageGraph.Compact() to shrink the
// string pool once orphaned nodes are removed; Compact then re-interns the
// surviving nodes' and edges' strings into the fresh pool (spec §4.2, §9).
func (p *interner) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool = make(map[string]string, len(p.pool))
}

// idPool mints stable, opaque, monotonically increasing IDs for nodes and
// edges. A single pool is shared by one graph instance; IDs from different
// graphs are never comparable (spec §4.1).
type idPool struct {
	nextNode uint64
	nextEdge uint64
}

// newNodeID mints a node ID. prefix and salt exist only to satisfy the
// contract's shape (callers may pass a human-readable hint for debugging);
// uniqueness comes entirely from the atomic counter, not from their values.
func (p *idPool) newNodeID(prefix string, salt string) NodeID {
	_ = prefix
	_ = salt
	return NodeID(atomic.AddUint64(&p.nextNode, 1))
}

func (p *idPool) newEdgeID() EdgeID {
	return EdgeID(atomic.AddUint64(&p.nextEdge, 1))
}

// canonicalKey lower-cases a name for case-insensitive comparison while
// leaving the caller's original string untouched for display (spec §4.3:
// "compared case-insensitively but preserved case-sensitively for display").
func canonicalKey(s string) string {
	return strings.ToLower(s)
}

// formatID renders an opaque ID for logging/diagnostics only; it carries
// no cross-graph meaning.
func formatID(kind string, id uint64) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('#')
	b.WriteString(strconv.FormatUint(id, 10))
	return b.String()
}
