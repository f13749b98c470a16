package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

func colRef(table, column string) *syntax.Node {
	n := syntax.NewNode(syntax.KindColumnReference, column)
	n.WithSlot("Column", syntax.NewNode(syntax.KindLiteral, column))
	if table != "" {
		n.WithSlot("Table", syntax.NewNode(syntax.KindLiteral, table))
	}
	return n
}

func newContext() (*resolve.Context, *lineage.LineageGraph) {
	g := lineage.NewLineageGraph("")
	return resolve.New(g, nil, nil), g
}

func soleEdge(t *testing.T, g *lineage.LineageGraph, src, tgt lineage.NodeID) lineage.Edge {
	t.Helper()
	paths := g.FindPaths(src, tgt, 3)
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 1)
	edge, err := g.GetEdge(paths[0][0])
	require.NoError(t, err)
	return edge
}

func TestLinkQualifiedColumnReferenceEmitsIndirectEdge(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("T1", "a"), exprID, "SELECT", rc, g)

	colID, ok := g.GetColumn("t1", "a")
	require.True(t, ok)
	edge := soleEdge(t, g, colID, exprID)
	assert.Equal(t, lineage.EdgeIndirect, edge.Type)
	assert.Equal(t, "SELECT", edge.Operation)
}

func TestLinkBinaryRecursesIntoBothSides(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	bin := syntax.NewNode(syntax.KindBinary, "a + b").
		WithSlot("Left", colRef("T1", "a")).
		WithSlot("Right", colRef("T1", "b"))
	Link(bin, exprID, "SELECT", rc, g)

	aID, _ := g.GetColumn("t1", "a")
	bID, _ := g.GetColumn("t1", "b")
	soleEdge(t, g, aID, exprID)
	soleEdge(t, g, bID, exprID)
}

func TestLinkNeverCreatesDirectEdges(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("T1", "a"), exprID, "SELECT", rc, g)

	colID, _ := g.GetColumn("t1", "a")
	edge := soleEdge(t, g, colID, exprID)
	assert.NotEqual(t, lineage.EdgeDirect, edge.Type)
}

func TestLinkSingleTableInScopeFallback(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("", "total"), exprID, "SELECT", rc, g)

	colID, ok := g.GetColumn("orders", "total")
	require.True(t, ok, "an unqualified column resolves to the sole table in scope")
	assert.Len(t, g.FindPaths(colID, exprID, 3), 1)
}

func TestLinkResolvesViaSoleOwningTableWhenUnqualified(t *testing.T) {
	rc, g := newContext()
	ordersID := rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	custID := rc.GetOrCreateTable("Customers", lineage.TableKindBaseTable, "")
	idCol := rc.GetOrCreateColumn("orders", "id", "")
	g.AttachColumnToTable(ordersID, idCol)
	_ = custID
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("", "id"), exprID, "SELECT", rc, g)

	colID, ok := g.GetColumn("orders", "id")
	require.True(t, ok, "two tables in scope but only one owns the column still resolves, per the third resolution tier")
	soleEdge(t, g, colID, exprID)

	_, placeholderExists := g.GetColumn("unknown", "id")
	assert.False(t, placeholderExists, "a resolvable unqualified column must not fall through to the Unresolvable placeholder path")
}

func TestLinkAmbiguousUnqualifiedColumnIsUnresolvable(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	rc.GetOrCreateTable("Customers", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("", "id"), exprID, "SELECT", rc, g)

	placeholderID, ok := g.GetColumn("unknown", "id")
	require.True(t, ok, "an ambiguous unqualified reference records an Unknown-table placeholder")
	assert.Len(t, g.FindPaths(placeholderID, exprID, 3), 1)
}

func TestLinkAmbiguousUnqualifiedColumnRecordsDiagnostic(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	rc.GetOrCreateTable("Customers", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("", "id"), exprID, "SELECT", rc, g)

	diags := g.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, lineage.DiagnosticUnresolvable, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "id")
}

func TestLinkUnknownTableStillProceedsWithPlaceholder(t *testing.T) {
	rc, g := newContext()
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	Link(colRef("Ghost", "x"), exprID, "SELECT", rc, g)

	colID, ok := g.GetColumn("ghost", "x")
	require.True(t, ok)
	assert.Len(t, g.FindPaths(colID, exprID, 3), 1)
}

func TestLinkCaseWalksPredicateResultAndElse(t *testing.T) {
	rc, g := newContext()
	rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")
	exprID := rc.GetOrCreateColumn("Result", "v", "")

	when := syntax.NewNode(syntax.KindUnknown, "").
		WithSlot("Predicate", colRef("T1", "a")).
		WithSlot("Result", colRef("T1", "b"))
	caseNode := syntax.NewNode(syntax.KindCase, "").
		WithList("WhenClauses", when).
		WithSlot("Else", colRef("T1", "c"))

	Link(caseNode, exprID, "CASE", rc, g)

	for _, col := range []string{"a", "b", "c"} {
		colID, ok := g.GetColumn("t1", col)
		require.True(t, ok, col)
		assert.Len(t, g.FindPaths(colID, exprID, 3), 1, col)
	}
}

func TestLinkNilExpressionIsNoop(t *testing.T) {
	rc, g := newContext()
	exprID := rc.GetOrCreateColumn("Result", "v", "")
	assert.NotPanics(t, func() { Link(nil, exprID, "SELECT", rc, g) })
}
