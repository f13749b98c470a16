package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleCase implements spec §4.5's Searched/Simple CASE rule. It is
// reached both when the walker dispatches directly to a CASE fragment
// (e.g. a CASE nested inside a WHERE predicate) and when
// handleSelectScalarExpressionInline hands a CASE select element to it
// through dispatchExpressionHandler; either way it creates its own
// Expression node rather than assuming one already exists.
func handleCase(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	exprNode := g.AddExpressionNode("CASE", frag.Text(), lineage.ExpressionKindCase, "", currentTargetTable(rc))
	linkCaseComponents(frag, exprNode, rc, g)
	maybeLinkTargetContext(exprNode, "CASE", rc, g)
	return nil, nil
}

// linkCaseComponents emits the per-branch Indirect edges spec §4.5
// prescribes: case_condition for WHEN predicates, case_result for THEN
// results, case_else for ELSE.
func linkCaseComponents(frag syntax.Fragment, exprNode lineage.NodeID, rc *resolve.Context, g *lineage.LineageGraph) {
	for _, when := range frag.List("WhenClauses") {
		linkColumnsOnly(when.Slot("Predicate"), rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "case_condition", when.Slot("Predicate").Text())
		})
		linkColumnsOnly(when.Slot("Result"), rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "case_result", when.Slot("Result").Text())
		})
	}
	if els := frag.Slot("Else"); els != nil {
		linkColumnsOnly(els, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "case_else", els.Text())
		})
	}
}

// handleCoalesce implements spec §4.5's COALESCE rule.
func handleCoalesce(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	exprNode := g.AddExpressionNode("COALESCE", frag.Text(), lineage.ExpressionKindCoalesce, "", currentTargetTable(rc))
	for _, arg := range frag.List("Arguments") {
		linkColumnsOnly(arg, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "coalesce_arg", arg.Text())
		})
	}
	maybeLinkTargetContext(exprNode, "COALESCE", rc, g)
	return nil, nil
}

// handleNullIf implements spec §4.5's NULLIF rule.
func handleNullIf(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	exprNode := g.AddExpressionNode("NULLIF", frag.Text(), lineage.ExpressionKindNullIf, "", currentTargetTable(rc))
	if first := frag.Slot("First"); first != nil {
		linkColumnsOnly(first, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "nullif_first", first.Text())
		})
	}
	if second := frag.Slot("Second"); second != nil {
		linkColumnsOnly(second, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "nullif_second", second.Text())
		})
	}
	maybeLinkTargetContext(exprNode, "NULLIF", rc, g)
	return nil, nil
}

// maybeLinkTargetContext emits the target-context Direct edge spec §4.5
// describes for CASE/COALESCE/NULLIF: "If a target-column context is
// active, also emit a Direct edge from the Expression node to that
// target."
func maybeLinkTargetContext(exprNode lineage.NodeID, operation string, rc *resolve.Context, g *lineage.LineageGraph) {
	if targetID, ok := rc.GetColumnContext(targetColumnContextKey); ok {
		_, _ = g.AddEdge(exprNode, targetID, lineage.EdgeDirect, operation, "")
	}
}

// handleWindowFunction implements spec §4.5's window function / OVER
// rule: PARTITION BY columns get "partition" Indirect edges, ORDER BY
// columns get "order" Indirect edges, and the node is tagged with
// isWindowFunction/windowDefinition metadata.
func handleWindowFunction(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	fnText := frag.Text()
	if fn := frag.Slot("Function"); fn != nil {
		fnText = fn.Text()
	}
	exprNode := g.AddExpressionNode(fnText, frag.Text(), lineage.ExpressionKindWindow, "", currentTargetTable(rc))

	if n, err := g.GetNode(exprNode); err == nil {
		n.Metadata["isWindowFunction"] = true
		n.Metadata["windowDefinition"] = frag.Text()
	}

	for _, p := range frag.List("PartitionBy") {
		linkColumnsOnly(p, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "partition", p.Text())
		})
	}
	for _, o := range frag.List("OrderBy") {
		linkColumnsOnly(o, rc, func(id lineage.NodeID) {
			_, _ = g.AddEdge(id, exprNode, lineage.EdgeIndirect, "order", o.Text())
		})
	}
	maybeLinkTargetContext(exprNode, "OVER", rc, g)
	return nil, nil
}
