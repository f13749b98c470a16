package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// processCTE registers a CTE as a Table node of kind CTE, then walks its
// body within a nested scope that records the CTE as the current result
// owner, so the body's SELECT list routes its output columns onto the CTE
// rather than the synthetic Result table (spec §4.5: "Expression/Column
// nodes produced there are owned by the CTE"). Recursive CTEs register the
// CTE table before walking the body, so a self-reference inside the body
// resolves to the already-registered table and the resulting cycle is
// allowed (spec I6).
func processCTE(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) {
	name := frag.Text()
	rc.GetOrCreateTable(name, lineage.TableKindCTE, "")

	pop := rc.PushScope()
	defer pop()
	rc.SetMeta("currentSelectInto", name)

	if body := frag.Slot("Body"); body != nil {
		handleSelect(body, rc, g)
	}
}

// handleCTE is the dispatch-table entry for a standalone KindCTE fragment
// reached directly by the walker (outside a WITH list, e.g. a parser that
// exposes CTEs as independent top-level fragments rather than nested
// inside the SELECT's "CTEs" list).
func handleCTE(frag syntax.Fragment, rc *resolve.Context, g *lineage.LineageGraph) ([]syntax.Fragment, error) {
	processCTE(frag, rc, g)
	return nil, nil
}
