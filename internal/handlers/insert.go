package handlers

import (
	"strings"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/linker"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// handleInsert implements spec §4.5's INSERT rule: a VALUES source emits
// nothing (literal data has no column source); a SELECT source enters the
// InInsertSelect metadata state, walks the SELECT, then pairs source
// elements with target columns positionally, falling back to
// name-matching for any target column still unpaired.
func handleInsert(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	targetName := frag.Slot("Target").Text()
	targetTable, ok := rc.ResolveTable(targetName)
	if !ok {
		targetTable = targetName
		rc.GetOrCreateTable(targetName, lineage.TableKindBaseTable, "")
	}

	targetColumns := columnNames(frag.List("Columns"))
	if len(targetColumns) == 0 {
		if provider := rc.Provider(); provider != nil {
			for _, c := range provider.GetTableColumns(targetTable) {
				targetColumns = append(targetColumns, c.Name)
			}
		}
	}

	if frag.Slot("Select") == nil {
		return nil, nil // VALUES source: no column provenance to record
	}

	pop := rc.PushScope()
	defer pop()
	rc.SetMeta("ProcessingInsertSelect", true)
	rc.SetMeta("InsertTargetTable", targetTable)
	rc.SetMeta("currentSelectInto", targetTable)

	selectFrag := frag.Slot("Select")
	handleSelect(selectFrag, rc, g)

	sourceElements := selectFrag.List("SelectElements")
	pairInsertColumns(targetTable, targetColumns, sourceElements, rc, g)

	return nil, nil
}

func columnNames(cols []syntax.Fragment) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Text())
	}
	return out
}

// pairInsertColumns emits Direct (bare column) or Indirect
// (expression-mediated) edges from each positionally-paired source select
// element into its target column; when positions don't line up, it falls
// back to case-insensitive name matching for any target still unpaired
// (spec §4.5).
func pairInsertColumns(targetTable string, targetColumns []string, sourceElements []syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	paired := make(map[string]bool, len(targetColumns))

	n := len(targetColumns)
	if len(sourceElements) < n {
		n = len(sourceElements)
	}
	for i := 0; i < n; i++ {
		targetCol := targetColumns[i]
		targetID := rc.GetOrCreateColumn(targetTable, targetCol, "")
		emitInsertEdge(sourceElements[i], targetID, rc, g)
		paired[strings.ToLower(targetCol)] = true
	}

	if len(targetColumns) == len(sourceElements) {
		return
	}

	for _, targetCol := range targetColumns {
		if paired[strings.ToLower(targetCol)] {
			continue
		}
		for _, elem := range sourceElements {
			expr := elem.Slot("Expression")
			if expr == nil {
				expr = elem
			}
			if expr.Kind() != syntax.KindColumnReference {
				continue
			}
			_, srcCol := resolveColumnRef(expr, rc)
			if strings.EqualFold(srcCol, targetCol) {
				targetID := rc.GetOrCreateColumn(targetTable, targetCol, "")
				emitInsertEdge(elem, targetID, rc, g)
				paired[strings.ToLower(targetCol)] = true
				break
			}
		}
	}
}

func emitInsertEdge(elem syntax.Fragment, targetID lineage.NodeID, rc *resolve.Context, g *lineage.LineageGraph) {
	expr := elem.Slot("Expression")
	if expr == nil {
		expr = elem
	}

	if expr.Kind() == syntax.KindColumnReference {
		table, col := resolveColumnRef(expr, rc)
		if table != "" {
			srcID := rc.GetOrCreateColumn(table, col, "")
			_, _ = g.AddEdge(srcID, targetID, lineage.EdgeDirect, "INSERT", elem.Text())
			return
		}
	}

	exprNode := g.AddExpressionNode(elem.Text(), expr.Text(), expressionKindFor(expr.Kind()), "", "")
	linker.Link(expr, exprNode, "INSERT", rc, g)
	_, _ = g.AddEdge(exprNode, targetID, lineage.EdgeIndirect, "INSERT", elem.Text())
}
