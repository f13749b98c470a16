package lineage

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestInternReturnsSameInstanceForEqualStrings(t *testing.T) {
	in := newInterner()
	a := in.intern("Customers")
	b := in.intern(strings.Clone("Customers"))
	assert.Same(t, unsafe.StringData(a), unsafe.StringData(b))
}

func TestIDPoolMintsUniqueIDs(t *testing.T) {
	var pool idPool
	seen := make(map[NodeID]bool)
	for i := 0; i < 1000; i++ {
		id := pool.newNodeID("Column", "x")
		assert.False(t, seen[id], "node IDs must be unique for the pool's lifetime")
		seen[id] = true
	}
}

func TestCanonicalKeyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, canonicalKey("Orders"), canonicalKey("ORDERS"))
	assert.Equal(t, canonicalKey("orders"), canonicalKey("Orders"))
}
