package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/metadata"
)

func TestResolveTableOrderOfPrecedence(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)

	rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	rc.GetOrCreateTable("#Staging", lineage.TableKindTempTable, "")
	rc.GetOrCreateTable("@Rows", lineage.TableKindTableVariable, "")
	rc.RegisterAlias("o", "orders")

	name, ok := rc.ResolveTable("Orders")
	require.True(t, ok)
	assert.Equal(t, "orders", name)

	name, ok = rc.ResolveTable("#Staging")
	require.True(t, ok)
	assert.Equal(t, "#staging", name)

	name, ok = rc.ResolveTable("o")
	require.True(t, ok)
	assert.Equal(t, "orders", name, "alias resolution falls back after direct/temp/variable lookups miss")

	_, ok = rc.ResolveTable("Unknown")
	assert.False(t, ok)
}

func TestGetOrCreateColumnAttachesToTable(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	tableID := rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")

	colID := rc.GetOrCreateColumn("T1", "a", "int")
	node, err := g.GetNode(tableID)
	require.NoError(t, err)
	assert.Contains(t, node.Columns, colID)
}

func TestColumnContextThreading(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	colID := rc.GetOrCreateColumn("Result", "v", "")

	_, ok := rc.GetColumnContext("target")
	assert.False(t, ok)

	rc.SetColumnContext("target", colID)
	got, ok := rc.GetColumnContext("target")
	require.True(t, ok)
	assert.Equal(t, colID, got)

	rc.ClearColumnContext("target")
	_, ok = rc.GetColumnContext("target")
	assert.False(t, ok)
}

func TestKnownTableNames(t *testing.T) {
	g := lineage.NewLineageGraph("")
	rc := New(g, nil, nil)
	rc.GetOrCreateTable("T1", lineage.TableKindBaseTable, "")
	rc.GetOrCreateTable("T2", lineage.TableKindBaseTable, "")
	assert.ElementsMatch(t, []string{"t1", "t2"}, rc.KnownTableNames())
}

func TestNamedTableReferencePreCreatesProviderColumns(t *testing.T) {
	g := lineage.NewLineageGraph("")
	provider := metadata.NewInMemoryProvider(map[string][]metadata.Column{
		"orders": {{Name: "id", DataType: "int"}, {Name: "total", DataType: "decimal"}},
	})
	rc := New(g, provider, nil)

	tableID := rc.GetOrCreateTable("Orders", lineage.TableKindBaseTable, "")
	for _, c := range provider.GetTableColumns("orders") {
		colID := rc.GetOrCreateColumn("orders", c.Name, c.DataType)
		g.AttachColumnToTable(tableID, colID)
	}

	node, err := g.GetNode(tableID)
	require.NoError(t, err)
	assert.Len(t, node.Columns, 2)
}
