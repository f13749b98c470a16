package handlers

import (
	"context"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
	"github.com/sqllineage/analyzer/internal/walker"
)

// handleCreateOrAlterProcedure implements spec §4.5's CREATE/ALTER
// PROCEDURE rule: the procedure itself becomes a table-like owner of its
// parameter list; OUTPUT parameters are targets, input parameters are
// sources as the body is analyzed. The body is walked synchronously here,
// inside the scope that records currentProcedure, rather than handed back
// to the caller as children to schedule later: by the time this function
// would return, the walker's own defer would already have popped that
// scope, so a deferred walk would see no procedure context at all (mirrors
// the same synchronous-body pattern cte.go's processCTE already uses).
func handleCreateOrAlterProcedure(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	name := frag.Text()
	procID := rc.GetOrCreateTable(name, lineage.TableKindDerivedTable, "")

	for _, param := range frag.List("Parameters") {
		dtype := ""
		if d := param.Slot("DataType"); d != nil {
			dtype = d.Text()
		}
		colID := rc.GetOrCreateColumn(name, param.Text(), dtype)
		g.AttachColumnToTable(procID, colID)
	}

	pop := rc.PushScope()
	defer pop()
	rc.SetMeta("currentProcedure", name)

	if body := frag.Slot("Body"); body != nil {
		sub := walker.New(Default(), walker.Budget{})
		sub.Walk(context.Background(), body, rc, g)
	}
	return nil, nil
}

// handleExecute implements spec §4.5's "EXECUTE statements treat argument
// expressions as sources for the procedure's input-parameter columns."
// Arguments are paired positionally, the same way INSERT pairs against
// target columns, against the column list the metadata provider reports
// for the procedure; with no provider no edge is emitted. Only
// ColumnReference arguments are linked, and OUTPUT parameters are not
// told apart from input parameters.
func handleExecute(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	procName := frag.Text()
	args := frag.List("Arguments")

	procTable, ok := rc.ResolveTable(procName)
	if !ok {
		return nil, nil // procedure never declared in this script: nothing to link
	}

	for i, arg := range args {
		if arg.Kind() != syntax.KindColumnReference {
			continue
		}
		table, col := resolveColumnRef(arg, rc)
		if table == "" {
			continue
		}
		srcID := rc.GetOrCreateColumn(table, col, "")

		if provider := rc.Provider(); provider != nil {
			cols := provider.GetTableColumns(procTable)
			if i < len(cols) {
				paramID := rc.GetOrCreateColumn(procTable, cols[i].Name, cols[i].DataType)
				_, _ = g.AddEdge(srcID, paramID, lineage.EdgeParameter, "EXECUTE", arg.Text())
			}
		}
	}
	return nil, nil
}
