package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleApply implements spec §4.5's CROSS/OUTER APPLY rule: walk the
// left table first, push the inApply metadata flag, then walk the right
// side; correlated references are just ordinary ColumnReference links
// since the scope's flat table namespace already makes the left side's
// columns visible by the time the right side resolves them. Spec
// additionally calls for a Join-typed edge per matched correlated column,
// emitted here from any correlation predicate the right side carries.
func handleApply(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	left := frag.Slot("Left")
	right := frag.Slot("Right")
	applyType := frag.Text()
	if t := frag.Slot("ApplyType"); t != nil {
		applyType = t.Text()
	}
	operation := applyType + " APPLY"

	if left != nil {
		processFromItem(left, rc, g)
	}

	pop := rc.PushScope()
	rc.SetMeta("inApply", true)
	if right != nil {
		processFromItem(right, rc, g)
		if corr := right.Slot("Correlation"); corr != nil {
			emitJoinEdges(corr, operation, g)
		}
	}
	pop()
	return nil, nil
}

// handleJoin implements spec §4.5's JOINs rule: for each ON-predicate
// equality, emit two Join edges (both directions), operation named for
// the join type.
func handleJoin(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	if left := frag.Slot("Left"); left != nil {
		processFromItem(left, rc, g)
	}
	if right := frag.Slot("Right"); right != nil {
		processFromItem(right, rc, g)
	}

	joinType := "INNER JOIN"
	if t := frag.Slot("JoinType"); t != nil {
		joinType = t.Text()
	}

	if pred := frag.Slot("Predicate"); pred != nil {
		emitJoinEdges(pred, joinType, g)
	}
	for _, pred := range frag.List("Predicates") {
		emitJoinEdges(pred, joinType, g)
	}
	return nil, nil
}

// emitJoinEdges walks a single equality predicate (Left=Right, both
// ColumnReference) and emits the bidirectional Join edges spec §4.5
// requires. Predicates that aren't a simple column=column equality
// produce no Join edge (they still contribute to Filter edges via the
// WHERE path if the parser represents them there instead).
func emitJoinEdges(pred syntax.Fragment, operation string, g *lineage.LineageGraph) {
	if pred.Kind() != syntax.KindBinary {
		return
	}
	left := pred.Slot("Left")
	right := pred.Slot("Right")
	if left == nil || right == nil || left.Kind() != syntax.KindColumnReference || right.Kind() != syntax.KindColumnReference {
		return
	}
	leftTable, leftCol := columnRefParts(left)
	rightTable, rightCol := columnRefParts(right)
	if leftTable == "" || rightTable == "" {
		return
	}

	leftID, leftOK := g.GetColumn(leftTable, leftCol)
	rightID, rightOK := g.GetColumn(rightTable, rightCol)
	if !leftOK || !rightOK {
		return
	}
	_, _ = g.AddEdge(leftID, rightID, lineage.EdgeJoin, operation, pred.Text())
	_, _ = g.AddEdge(rightID, leftID, lineage.EdgeJoin, operation, pred.Text())
}

func columnRefParts(f syntax.Fragment) (table, column string) {
	column = f.Text()
	if c := f.Slot("Column"); c != nil {
		column = c.Text()
	}
	if t := f.Slot("Table"); t != nil {
		table = t.Text()
	}
	return table, column
}

// handleUnion is a supplemented handler: spec §4.5 lists Union among the
// closed set of fragment kinds the external parser exposes (§6) but does
// not spell out its lineage rule beyond implication. UNION output takes
// its column names from the first arm, so the first arm is walked as an
// ordinary SELECT (populating Result the normal way) and every later arm
// is paired positionally against that same set of Result columns, the
// same positional-pairing rule INSERT already applies between a source
// SELECT and its target column list.
func handleUnion(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	queries := frag.List("Queries")
	if len(queries) == 0 {
		return nil, nil
	}

	first := queries[0]
	if first.Kind() != syntax.KindSelect {
		processFromItem(first, rc, g)
		return handleUnionRemaining(queries[1:], nil, rc, g)
	}
	handleSelect(first, rc, g)

	targetColumns := selectElementNames(first.List("SelectElements"))
	return handleUnionRemaining(queries[1:], targetColumns, rc, g)
}

func handleUnionRemaining(queries []syntax.Fragment, targetColumns []string, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	for _, q := range queries {
		if q.Kind() != syntax.KindSelect {
			processFromItem(q, rc, g)
			continue
		}
		if targetColumns == nil {
			handleSelect(q, rc, g)
			continue
		}

		pop := rc.PushScope()
		for _, tbl := range q.List("From") {
			processFromItem(tbl, rc, g)
		}
		pairInsertColumns(currentTargetTable(rc), targetColumns, q.List("SelectElements"), rc, g)
		pop()
	}
	return nil, nil
}

func selectElementNames(elems []syntax.Fragment) []string {
	names := make([]string, 0, len(elems))
	for _, e := range elems {
		alias := e.Text()
		if a := e.Slot("Alias"); a != nil {
			alias = a.Text()
		}
		if alias == "" {
			if expr := e.Slot("Expression"); expr != nil {
				alias = expr.Text()
			}
		}
		names = append(names, alias)
	}
	return names
}
