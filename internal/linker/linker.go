// Package linker implements the expression linker (C6): a pure recursive
// descent over scalar/boolean expression fragments that enriches an
// already-created Expression node with Indirect edges from every column it
// reads. It never creates Direct edges; those belong to whichever handler
// dispatched into it (spec §4.6).
package linker

import (
	"strings"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
)

// Link walks expr, resolving every ColumnReference it contains and emitting
// an Indirect edge from each resolved column to exprNode with the given
// operation label. It recurses through BinaryOp/FunctionCall/Parenthesis/
// CASE by kind; any other fragment kind (the IN/LIKE/IS NULL/NOT/AND/OR
// family of spec §4.6) is descended through its Expression/Left/Right/
// Values slots and lists, so a fragment with none of those, such as a
// Literal, adds no edge.
func Link(expr syntax.Fragment, exprNode lineage.NodeID, operation string, rc *resolve.Context, g *lineage.LineageGraph) {
	if expr == nil {
		return
	}
	l := &linker{exprNode: exprNode, operation: operation, rc: rc, g: g}
	l.walk(expr)
}

type linker struct {
	exprNode lineage.NodeID
	operation string
	rc        *resolve.Context
	g         *lineage.LineageGraph
}

func (l *linker) walk(f syntax.Fragment) {
	if f == nil {
		return
	}
	switch f.Kind() {
	case syntax.KindColumnReference:
		l.linkColumnReference(f)
	case syntax.KindBinary:
		l.walk(f.Slot("Left"))
		l.walk(f.Slot("Right"))
	case syntax.KindFunction:
		for _, arg := range f.List("Arguments") {
			l.walk(arg)
		}
	case syntax.KindParenthesis:
		l.walk(f.Slot("Expression"))
	case syntax.KindCase:
		for _, when := range f.List("WhenClauses") {
			l.walk(when.Slot("Predicate"))
			l.walk(when.Slot("Result"))
		}
		l.walk(f.Slot("Else"))
	default:
		l.walkPredicateShape(f)
	}
}

// walkPredicateShape handles the IN/LIKE/IS NULL/NOT/AND/OR family, all of
// which spec §4.6 describes identically: "recurse on each contained
// scalar/boolean." Rather than enumerate one case per operator name (the
// external parser is not required to distinguish them by Kind beyond
// Binary/Function), this falls back to structural enumeration of named
// slots and lists, which covers every shape in that family without a
// parser-specific Kind per operator.
func (l *linker) walkPredicateShape(f syntax.Fragment) {
	for _, key := range []string{"Expression", "Left", "Right", "Values"} {
		if child := f.Slot(key); child != nil {
			l.walk(child)
		}
		for _, item := range f.List(key) {
			l.walk(item)
		}
	}
}

func (l *linker) linkColumnReference(f syntax.Fragment) {
	name := columnName(f)
	if name == "" {
		return
	}
	tableHint := tableQualifier(f)

	table, ok := l.resolveTable(tableHint, name)
	if !ok {
		l.recordUnresolvable(f, tableHint, name)
		return
	}

	colID := l.rc.GetOrCreateColumn(table, name, "")
	if _, err := l.g.AddEdge(colID, l.exprNode, lineage.EdgeIndirect, l.operation, f.Text()); err != nil {
		return
	}
}

// resolveTable implements spec §4.6's ColumnReference rule: alias map
// first; if none and exactly one table is in scope, use it; otherwise
// search every table in scope for a matching column name.
func (l *linker) resolveTable(tableHint, column string) (string, bool) {
	if tableHint != "" {
		if name, ok := l.rc.ResolveTable(tableHint); ok {
			return name, true
		}
		return tableHint, true // unknown table: still proceed, producing a placeholder node (spec B2)
	}

	known := l.rc.KnownTableNames()
	if len(known) == 1 {
		return known[0], true
	}
	if owner, ok := l.soleOwnerOf(known, column); ok {
		return owner, true
	}
	return "", len(known) == 0
}

// soleOwnerOf searches every table in scope for the one that already has a
// column named column, returning it only when exactly one table owns it
// (spec §4.6's third resolution tier). Ambiguous or absent matches fall
// through to the Unresolvable path.
func (l *linker) soleOwnerOf(known []string, column string) (string, bool) {
	owner := ""
	for _, t := range known {
		if _, ok := l.g.GetColumn(t, column); ok {
			if owner != "" {
				return "", false
			}
			owner = t
		}
	}
	return owner, owner != ""
}

func (l *linker) recordUnresolvable(f syntax.Fragment, tableHint, name string) {
	placeholder := l.rc.GetOrCreateColumn(firstNonEmpty(tableHint, "Unknown"), name, "unknown")
	message := "unresolvable column reference " + name
	if l.rc.Fuzzy() != nil {
		if suggestedTable, ok := l.rc.Fuzzy().Suggest(tableHint, name); ok {
			if resolved, ok := l.rc.ResolveTable(suggestedTable); ok {
				placeholder = l.rc.GetOrCreateColumn(resolved, name, "")
				message = "unresolvable column reference " + name + ", fuzzy-matched to " + resolved
			}
		}
	}
	_, _ = l.g.AddEdge(placeholder, l.exprNode, lineage.EdgeIndirect, l.operation, name)
	l.g.AddDiagnostic(lineage.Diagnostic{
		Kind:     lineage.DiagnosticUnresolvable,
		Fragment: f.Kind().String(),
		Message:  message,
		Position: f.Text(),
	})
}

func firstNonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// columnName and tableQualifier read the structural slots a
// ColumnReference fragment is expected to expose: "Table" (optional
// qualifier) and "Column" (the bare name), falling back to parsing Text()
// only when those slots are absent (a dialect/parser that flattens a
// qualified reference into raw text rather than named slots).
func columnName(f syntax.Fragment) string {
	if col := f.Slot("Column"); col != nil {
		return col.Text()
	}
	text := f.Text()
	if i := strings.LastIndex(text, "."); i >= 0 {
		return text[i+1:]
	}
	return text
}

func tableQualifier(f syntax.Fragment) string {
	if tbl := f.Slot("Table"); tbl != nil {
		return tbl.Text()
	}
	text := f.Text()
	if i := strings.LastIndex(text, "."); i >= 0 {
		return text[:i]
	}
	return ""
}
