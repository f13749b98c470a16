package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqllineage/analyzer/internal/lineage"
)

func TestWriteJSONFieldNamesMatchSpec(t *testing.T) {
	g := lineage.NewLineageGraph("SELECT a FROM T1")
	tbl := g.AddTableNode("T1", lineage.TableKindBaseTable, "", "")
	col := g.AddColumnNode("T1", "a", "int", lineage.ColumnFlags{})
	g.AttachColumnToTable(tbl, col)
	expr := g.AddExpressionNode("v", "a+1", lineage.ExpressionKindArithmetic, "int", "Result")
	_, err := g.AddEdge(col, expr, lineage.EdgeIndirect, "SELECT", "a")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "SELECT a FROM T1", doc["sourceSql"])
	nodes, ok := doc["nodes"].([]any)
	require.True(t, ok)
	require.Len(t, nodes, 3)

	edges, ok := doc["edges"].([]any)
	require.True(t, ok)
	require.Len(t, edges, 1)
	edge := edges[0].(map[string]any)
	for _, key := range []string{"id", "sourceId", "targetId", "type", "operation", "sqlExpression"} {
		_, present := edge[key]
		assert.True(t, present, "edge JSON missing field %q", key)
	}
	assert.Equal(t, "Indirect", edge["type"])
	assert.Equal(t, "SELECT", edge["operation"])

	var columnNode map[string]any
	for _, raw := range nodes {
		n := raw.(map[string]any)
		if n["type"] == "Column" {
			columnNode = n
			break
		}
	}
	require.NotNil(t, columnNode)
	for _, key := range []string{"id", "name", "type", "objectName", "schemaName", "databaseName", "dataType", "tableOwner"} {
		_, present := columnNode[key]
		assert.True(t, present, "column node JSON missing field %q", key)
	}
}

func TestWriteJSONTableNodeCarriesColumnList(t *testing.T) {
	g := lineage.NewLineageGraph("")
	tbl := g.AddTableNode("Orders", lineage.TableKindBaseTable, "o", "")
	col := g.AddColumnNode("Orders", "id", "int", lineage.ColumnFlags{})
	g.AttachColumnToTable(tbl, col)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	nodes := doc["nodes"].([]any)

	var tableNode map[string]any
	for _, raw := range nodes {
		n := raw.(map[string]any)
		if n["type"] == "Table" {
			tableNode = n
		}
	}
	require.NotNil(t, tableNode)
	assert.Equal(t, "o", tableNode["alias"])
	cols, ok := tableNode["columns"].([]any)
	require.True(t, ok)
	assert.Len(t, cols, 1)
}

func TestWriteJSONEmptyGraphProducesEmptyCollections(t *testing.T) {
	g := lineage.NewLineageGraph("")
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Nil(t, doc["nodes"])
	assert.Nil(t, doc["edges"])
}
