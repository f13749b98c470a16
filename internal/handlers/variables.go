package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/linker"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// variableOwner is the synthetic table owning script-local @variable
// columns, keeping them out of the Result/table namespace (spec §4.5
// "DECLARE @v / SET @v").
const variableOwner = "@script"

// handleDeclareVar implements spec §4.5's "DECLARE @v" rule: a
// column-like node for the variable, with no edges until it is later SET.
func handleDeclareVar(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	dtype := ""
	if d := frag.Slot("DataType"); d != nil {
		dtype = d.Text()
	}
	rc.GetOrCreateColumn(variableOwner, frag.Text(), dtype)
	return nil, nil
}

// handleSet implements spec §4.5's "SET @v = expr" rule: edges from the
// expression's sources into the variable node, operation "SET". Inside a
// CREATE/ALTER PROCEDURE body, a variable that is also one of the
// enclosing procedure's own parameters (spec §8 Scenario 6's OUTPUT
// parameter) binds to that procedure's column instead of the script-local
// @script owner, so the edge lands on p.@tot rather than @script.@tot.
func handleSet(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	target := frag.Slot("Target")
	expr := frag.Slot("Expression")
	if target == nil || expr == nil {
		return nil, nil
	}
	owner := setTargetOwner(rc, g, target.Text())
	targetID := rc.GetOrCreateColumn(owner, target.Text(), "")

	if expr.Kind() == syntax.KindColumnReference {
		table, col := resolveColumnRef(expr, rc)
		if table != "" {
			srcID := rc.GetOrCreateColumn(table, col, "")
			_, _ = g.AddEdge(srcID, targetID, lineage.EdgeDirect, "SET", frag.Text())
			return nil, nil
		}
	}

	exprNode := g.AddExpressionNode(target.Text(), expr.Text(), expressionKindFor(expr.Kind()), "", owner)
	linker.Link(expr, exprNode, "SET", rc, g)
	_, _ = g.AddEdge(exprNode, targetID, lineage.EdgeDirect, "SET", frag.Text())
	return nil, nil
}

// setTargetOwner resolves which table a SET target column belongs to: the
// enclosing procedure, if one is active and already declares a parameter
// by this name, otherwise the script-local @script owner.
func setTargetOwner(rc *resolve.Context, g *lineage.LineageGraph, name string) string {
	if proc, ok := rc.GetMetaString("currentProcedure"); ok && proc != "" {
		if _, exists := g.GetColumn(proc, name); exists {
			return proc
		}
	}
	return variableOwner
}
