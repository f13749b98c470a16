package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handlePivot implements spec §4.5's PIVOT rule: one synthesized output
// Column per IN-list value, each fed by the aggregate argument and the
// pivot/source columns (scenario 5, spec §8).
func handlePivot(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	source := frag.Slot("Source")
	if source != nil {
		processFromItem(source, rc, g)
	}
	alias := frag.Text()
	if a := frag.Slot("Alias"); a != nil {
		alias = a.Text()
	}
	pivotTableID := rc.GetOrCreateTable(alias, lineage.TableKindDerivedTable, "")
	if alias != "" {
		rc.RegisterAlias(alias, alias)
	}

	agg := frag.Slot("Aggregate")
	forCol := frag.Slot("ForColumn")

	for _, inVal := range frag.List("InValues") {
		outColID := rc.GetOrCreateColumn(alias, inVal.Text(), "")
		g.AttachColumnToTable(pivotTableID, outColID)

		if agg != nil {
			linkColumnsOnly(agg, rc, func(id lineage.NodeID) {
				_, _ = g.AddEdge(id, outColID, lineage.EdgeIndirect, "PIVOT", agg.Text())
			})
		}
		if forCol != nil {
			linkColumnsOnly(forCol, rc, func(id lineage.NodeID) {
				_, _ = g.AddEdge(id, outColID, lineage.EdgeIndirect, "PIVOT", forCol.Text())
			})
		}
	}
	return nil, nil
}

// handleUnpivot implements spec §4.5's UNPIVOT rule: a valueColumn and a
// nameColumn, each fed from every source column in the IN-list.
func handleUnpivot(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	source := frag.Slot("Source")
	if source != nil {
		processFromItem(source, rc, g)
	}
	alias := frag.Text()
	if a := frag.Slot("Alias"); a != nil {
		alias = a.Text()
	}
	unpivotTableID := rc.GetOrCreateTable(alias, lineage.TableKindDerivedTable, "")

	valueCol := "valueColumn"
	if v := frag.Slot("ValueColumn"); v != nil {
		valueCol = v.Text()
	}
	nameCol := "nameColumn"
	if v := frag.Slot("NameColumn"); v != nil {
		nameCol = v.Text()
	}
	valueColID := rc.GetOrCreateColumn(alias, valueCol, "")
	nameColID := rc.GetOrCreateColumn(alias, nameCol, "")
	g.AttachColumnToTable(unpivotTableID, valueColID)
	g.AttachColumnToTable(unpivotTableID, nameColID)

	for _, inCol := range frag.List("InColumns") {
		linkColumnsOnly(inCol, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, valueColID, lineage.EdgeIndirect, "UNPIVOT", inCol.Text())
			_, _ = g.AddEdge(id, nameColID, lineage.EdgeIndirect, "UNPIVOT", inCol.Text())
		})
	}
	return nil, nil
}
