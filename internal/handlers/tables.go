package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleCreateTable implements spec §4.5's "CREATE TABLE for a name
// beginning with #" rule: temp tables get their own Table node and
// declared columns. A CREATE TABLE for a name that does NOT begin with #
// is a base table declaration; it registers the same way but as
// BaseTable, since metadata-provider-free scripts still need a node to
// attach later references to.
func handleCreateTable(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	name := frag.Text()
	kind := lineage.TableKindBaseTable
	if isTempName(name) {
		kind = lineage.TableKindTempTable
	}

	tableID := rc.GetOrCreateTable(name, kind, "")
	declareColumns(tableID, name, frag.List("Columns"), rc, g)
	return nil, nil
}

// handleDeclareTable implements spec §4.5's "DECLARE @x TABLE(...)" rule.
func handleDeclareTable(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	name := frag.Text()
	tableID := rc.GetOrCreateTable(name, lineage.TableKindTableVariable, "")
	declareColumns(tableID, name, frag.List("Columns"), rc, g)
	return nil, nil
}

func declareColumns(tableID lineage.NodeID, tableName string, cols []syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	for _, col := range cols {
		dtype := ""
		if d := col.Slot("DataType"); d != nil {
			dtype = d.Text()
		}
		colID := rc.GetOrCreateColumn(tableName, col.Text(), dtype)
		g.AttachColumnToTable(tableID, colID)
	}
}
