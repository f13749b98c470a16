package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/linker"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleUpdate implements spec §4.5 UPDATE: each SET clause produces a
// Direct edge (bare column source) or an Expression-mediated edge into
// the updated table's column.
func handleUpdate(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	targetName := frag.Slot("Target").Text()
	targetTable, ok := rc.ResolveTable(targetName)
	if !ok {
		targetTable = targetName
		rc.GetOrCreateTable(targetName, lineage.TableKindBaseTable, "")
	}
	rc.RegisterAlias(targetName, targetTable)

	for _, from := range frag.List("From") {
		processFromItem(from, rc, g)
	}

	for _, set := range frag.List("SetClauses") {
		col := set.Slot("Column")
		expr := set.Slot("Expression")
		if col == nil || expr == nil {
			continue
		}
		targetID := rc.GetOrCreateColumn(targetTable, col.Text(), "")

		if expr.Kind() == syntax.KindColumnReference {
			table, srcCol := resolveColumnRef(expr, rc)
			if table != "" {
				srcID := rc.GetOrCreateColumn(table, srcCol, "")
				_, _ = g.AddEdge(srcID, targetID, lineage.EdgeDirect, "UPDATE", set.Text())
				continue
			}
		}

		exprNode := g.AddExpressionNode(col.Text(), expr.Text(), expressionKindFor(expr.Kind()), "", targetTable)
		linker.Link(expr, exprNode, "UPDATE", rc, g)
		_, _ = g.AddEdge(exprNode, targetID, lineage.EdgeIndirect, "UPDATE", set.Text())
	}

	if where := frag.Slot("Where"); where != nil {
		linkPredicateToFilterExpr(where, "WHERE", "Filter", rc, g)
	}

	return nil, nil
}

// handleDelete is a supplemented handler (not named individually in spec
// §4.5, which enumerates the statement kinds this core must support but
// leaves DELETE's own body unspecified beyond "tolerates any statement
// kind"): a DELETE has no column-provenance of its own, but its WHERE
// clause still produces Filter edges the same way SELECT/UPDATE do.
func handleDelete(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	targetName := frag.Slot("Target").Text()
	if _, ok := rc.ResolveTable(targetName); !ok {
		rc.GetOrCreateTable(targetName, lineage.TableKindBaseTable, "")
	}
	if where := frag.Slot("Where"); where != nil {
		linkPredicateToFilterExpr(where, "WHERE", "Filter", rc, g)
	}
	return nil, nil
}
