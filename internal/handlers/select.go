package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/linker"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleSelect processes a SELECT statement / QuerySpecification in the
// order spec §4.5 requires: WITH-clause CTEs first, then FROM, then the
// SELECT list, then WHERE/GROUP BY/ORDER BY. Ordering is enforced directly
// here rather than left to the walker's FIFO queue, since CTE/FROM
// registration must be visible by the time the SELECT list resolves
// column references.
func handleSelect(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	for _, cte := range frag.List("CTEs") {
		processCTE(cte, rc, g)
	}

	for _, tbl := range frag.List("From") {
		processFromItem(tbl, rc, g)
	}

	if into := frag.Slot("Into"); into != nil {
		name := into.Text()
		rc.GetOrCreateTable(name, lineage.TableKindTempTable, "")
		rc.SetMeta("currentSelectInto", name)
	}

	for _, elem := range frag.List("SelectElements") {
		handleSelectScalarExpressionInline(elem, rc, g)
	}

	if where := frag.Slot("Where"); where != nil {
		linkPredicateToFilterExpr(where, "WHERE", "Filter", rc, g)
	}
	for _, groupKey := range frag.List("GroupBy") {
		linkPredicateToFilterExpr(groupKey, "GROUP BY", "GroupBy", rc, g)
	}
	for _, orderKey := range frag.List("OrderBy") {
		linkPredicateToFilterExpr(orderKey, "ORDER BY", "GroupBy", rc, g)
	}

	return nil, nil
}

// processFromItem dispatches a FROM-clause item by its own kind: a plain
// table reference, a nested JOIN, or a nested derived-table SELECT.
func processFromItem(item syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	switch item.Kind() {
	case syntax.KindNamedTableReference:
		handleNamedTableReference(item, rc, g)
	case syntax.KindJoin:
		handleJoin(item, rc, g)
	case syntax.KindApply:
		handleApply(item, rc, g)
	case syntax.KindPivot:
		handlePivot(item, rc, g)
	case syntax.KindUnpivot:
		handleUnpivot(item, rc, g)
	case syntax.KindSelect:
		handleSelect(item, rc, g)
	default:
		for _, c := range item.Children() {
			processFromItem(c, rc, g)
		}
	}
}

// handleNamedTableReference resolves a qualified table/view/CTE/temp-table
// name, registers its alias, and (if a metadata provider is configured)
// pre-creates its known columns (spec §4.5).
func handleNamedTableReference(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	name := frag.Text()
	alias := ""
	if a := frag.Slot("Alias"); a != nil {
		alias = a.Text()
	}

	canonical, known := rc.ResolveTable(name)
	if !known {
		canonical = name
		rc.GetOrCreateTable(name, lineage.TableKindBaseTable, "")
	}
	if alias != "" {
		rc.RegisterAlias(alias, canonical)
	}

	if provider := rc.Provider(); provider != nil {
		if tableID, ok := g.GetTable(canonical); ok {
			for _, col := range provider.GetTableColumns(canonical) {
				colID := rc.GetOrCreateColumn(canonical, col.Name, col.DataType)
				g.AttachColumnToTable(tableID, colID)
			}
		}
	}
	return nil, nil
}

// handleSelectScalarExpressionInline implements spec §4.5
// SelectScalarExpression: a bare column reference produces a direct
// source->target edge; anything more complex goes through an Expression
// node and the linker.
func handleSelectScalarExpressionInline(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	expr := frag.Slot("Expression")
	if expr == nil {
		expr = frag
	}
	alias := frag.Text()
	if a := frag.Slot("Alias"); a != nil {
		alias = a.Text()
	}
	if alias == "" {
		alias = expr.Text()
	}

	targetTable := currentTargetTable(rc)
	ensureResultTable(rc)
	targetID := rc.GetOrCreateColumn(targetTable, alias, "")

	if expr.Kind() == syntax.KindColumnReference {
		sourceTable, sourceCol := resolveColumnRef(expr, rc)
		if sourceTable != "" {
			srcID := rc.GetOrCreateColumn(sourceTable, sourceCol, "")
			_, _ = g.AddEdge(srcID, targetID, lineage.EdgeDirect, "SELECT", frag.Text())
			return
		}
	}

	// CASE/COALESCE/NULLIF/window expressions have their own finer-grained
	// handlers (per-branch operation labels); route to them with the
	// target column threaded through so they can emit the Direct edge to
	// it themselves (spec §4.5's "if a target-column context is active").
	switch expr.Kind() {
	case syntax.KindCase, syntax.KindCoalesce, syntax.KindNullIf, syntax.KindOver:
		rc.SetColumnContext(targetColumnContextKey, targetID)
		dispatchExpressionHandler(expr, rc, g)
		rc.ClearColumnContext(targetColumnContextKey)
		return
	}

	exprKind := expressionKindFor(expr.Kind())
	exprNode := g.AddExpressionNode(alias, expr.Text(), exprKind, "", targetTable)
	linker.Link(expr, exprNode, exprKindOperation(expr.Kind()), rc, g)
	_, _ = g.AddEdge(exprNode, targetID, lineage.EdgeDirect, "SELECT", frag.Text())
}

// dispatchExpressionHandler routes expr to its dedicated handler by kind,
// used when a caller already knows which specific handler applies (so it
// doesn't need a full Table lookup for this one call).
func dispatchExpressionHandler(expr syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	switch expr.Kind() {
	case syntax.KindCase:
		handleCase(expr, rc, g)
	case syntax.KindCoalesce:
		handleCoalesce(expr, rc, g)
	case syntax.KindNullIf:
		handleNullIf(expr, rc, g)
	case syntax.KindOver:
		handleWindowFunction(expr, rc, g)
	}
}

// handleSelectScalarExpression is the dispatch-table entry matching
// KindSelectScalarExpression, used when the walker reaches one directly
// (e.g. inside an UPDATE SET list reusing the same fragment shape).
func handleSelectScalarExpression(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	handleSelectScalarExpressionInline(frag, rc, g)
	return nil, nil
}

// linkPredicateToFilterExpr wires a WHERE/GROUP BY/ORDER BY key into a
// synthetic Expression node via Filter/GroupBy edges (spec §4.5's main
// QuerySpecification paragraph).
func linkPredicateToFilterExpr(pred syntax.Fragment, operation string, edgeLabel string, rc *resolve.Context, g *lineage.LineageGraph) {
	exprNode := g.AddExpressionNode(operation, pred.Text(), lineage.ExpressionKindPredicate, "", currentTargetTable(rc))
	edgeType := lineage.EdgeFilter
	if edgeLabel == "GroupBy" {
		edgeType = lineage.EdgeGroupBy
	}
	linkColumnsOnly(pred, rc, func(colID lineage.NodeID) {
		_, _ = g.AddEdge(colID, exprNode, edgeType, operation, pred.Text())
	})
}

// linkColumnsOnly walks f for ColumnReference leaves and invokes emit for
// each resolved column, reusing the same structural-descent shape the
// linker uses but without creating an Expression-owned indirect edge
// (the caller picks the edge type itself).
func linkColumnsOnly(f syntax.Fragment, rc *resolve.Context, emit func(lineage.NodeID)) {
	if f == nil {
		return
	}
	if f.Kind() == syntax.KindColumnReference {
		table, col := resolveColumnRef(f, rc)
		if table != "" {
			emit(rc.GetOrCreateColumn(table, col, ""))
		}
		return
	}
	for _, c := range f.Children() {
		linkColumnsOnly(c, rc, emit)
	}
}

// resolveColumnRef applies spec §4.6's ColumnReference resolution order:
// alias map, else the single table in scope, else search tables in scope
// for a matching column name.
func resolveColumnRef(f syntax.Fragment, rc *resolve.Context) (table, column string) {
	column = f.Text()
	tableHint := ""
	if c := f.Slot("Column"); c != nil {
		column = c.Text()
	}
	if t := f.Slot("Table"); t != nil {
		tableHint = t.Text()
	}
	if tableHint != "" {
		if resolved, ok := rc.ResolveTable(tableHint); ok {
			return resolved, column
		}
		return tableHint, column
	}
	known := rc.KnownTableNames()
	if len(known) == 1 {
		return known[0], column
	}
	if owner, ok := soleOwnerOf(rc, known, column); ok {
		return owner, column
	}
	return "", column
}

// soleOwnerOf searches known for the one table that already has a column
// named column, returning it only when exactly one table owns it (spec
// §4.6's third resolution tier). Mirrors linker.resolveTable's own search.
func soleOwnerOf(rc *resolve.Context, known []string, column string) (string, bool) {
	owner := ""
	for _, t := range known {
		if _, ok := rc.Graph().GetColumn(t, column); ok {
			if owner != "" {
				return "", false
			}
			owner = t
		}
	}
	return owner, owner != ""
}

func expressionKindFor(k syntax.Kind) lineage.ExpressionKind {
	switch k {
	case syntax.KindCase:
		return lineage.ExpressionKindCase
	case syntax.KindCoalesce:
		return lineage.ExpressionKindCoalesce
	case syntax.KindNullIf:
		return lineage.ExpressionKindNullIf
	case syntax.KindOver:
		return lineage.ExpressionKindWindow
	case syntax.KindPivot:
		return lineage.ExpressionKindPivot
	case syntax.KindUnpivot:
		return lineage.ExpressionKindUnpivot
	case syntax.KindBinary:
		return lineage.ExpressionKindArithmetic
	default:
		return lineage.ExpressionKindFunction
	}
}

func exprKindOperation(k syntax.Kind) string {
	switch k {
	case syntax.KindCase:
		return "CASE"
	case syntax.KindCoalesce:
		return "COALESCE"
	case syntax.KindNullIf:
		return "NULLIF"
	default:
		return "expression"
	}
}
