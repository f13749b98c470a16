package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqllineage/analyzer/internal/lineage"
)

func TestPushScopeSnapshotsParentAndRestoresOnPop(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)

	rc.SetMeta("currentSelectInto", "outer")
	pop := rc.PushScope()
	assert.Equal(t, 2, rc.Depth())

	v, ok := rc.GetMetaString("currentSelectInto")
	require.True(t, ok)
	assert.Equal(t, "outer", v, "a pushed scope snapshots the parent frame's keys")

	rc.SetMeta("currentSelectInto", "inner")
	pop()
	assert.Equal(t, 1, rc.Depth())

	v, ok = rc.GetMetaString("currentSelectInto")
	require.True(t, ok)
	assert.Equal(t, "outer", v, "popping restores the parent's value, not the child's mutation")
}

func TestPopIsIdempotent(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	pop := rc.PushScope()
	pop()
	pop()
	assert.Equal(t, 1, rc.Depth(), "calling the returned pop twice must not underflow the stack")
}

func TestPopNeverDropsBelowTopLevel(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	assert.Equal(t, 1, rc.Depth())
	popA := rc.PushScope()
	popB := rc.PushScope()
	popA()
	popB()
	popA()
	popB()
	assert.Equal(t, 1, rc.Depth(), "out-of-order and repeated pops leave the top-level frame in place")
}

func TestGetMetaBoolDefaultsFalse(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	assert.False(t, rc.GetMetaBool("ProcessingInsertSelect"))
	rc.SetMeta("ProcessingInsertSelect", true)
	assert.True(t, rc.GetMetaBool("ProcessingInsertSelect"))
}

func TestNestedScopesDoNotLeakIntoSiblings(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)

	popA := rc.PushScope()
	rc.SetMeta("inApply", true)
	popA()

	popB := rc.PushScope()
	defer popB()
	assert.False(t, rc.GetMetaBool("inApply"), "a sibling scope must not see a popped scope's mutation")
}
