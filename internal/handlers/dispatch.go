// Package handlers implements the handler dispatch table (C5): one
// function per syntax-node kind, each deciding whether it fully processes
// a fragment or defers to the walker's default structural traversal (spec
// §4.5).
package handlers

import (
	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/resolve"
	"github.com/sqllineage/analyzer/internal/syntax"
	"github.com/sqllineage/analyzer/internal/walker"
)

// HandlerFunc matches walker.Handler; declared locally so this package
// does not need to re-import walker's type alias in every file.
type HandlerFunc = walker.Handler

// Table is a walker.Dispatcher backed by a plain map, built once by
// Default() and safe for concurrent reads across many walks (it is never
// mutated after construction).
type Table map[syntax.Kind]HandlerFunc

func (t Table) HandlerFor(k syntax.Kind) (HandlerFunc, bool) {
	h, ok := t[k]
	return h, ok
}

// Default returns the handler table described by spec §4.5: SELECT,
// NamedTableReference, SelectScalarExpression, INSERT, UPDATE, DELETE,
// CTE, temp table / table variable / SELECT INTO, CREATE/ALTER PROCEDURE
// + EXECUTE, DECLARE/SET variable, CASE/COALESCE/NULLIF, window
// functions, PIVOT/UNPIVOT, APPLY, JOIN, plus the UNION handler this
// module's expanded scope adds alongside it.
func Default() Table {
	return Table{
		syntax.KindSelect:                 handleSelect,
		syntax.KindNamedTableReference:     handleNamedTableReference,
		syntax.KindSelectScalarExpression:  handleSelectScalarExpression,
		syntax.KindInsert:                  handleInsert,
		syntax.KindUpdate:                  handleUpdate,
		syntax.KindDelete:                  handleDelete,
		syntax.KindCTE:                     handleCTE,
		syntax.KindCreateTable:             handleCreateTable,
		syntax.KindDeclareTable:            handleDeclareTable,
		syntax.KindCreateProcedure:         handleCreateOrAlterProcedure,
		syntax.KindAlterProcedure:          handleCreateOrAlterProcedure,
		syntax.KindExecute:                 handleExecute,
		syntax.KindDeclareVar:              handleDeclareVar,
		syntax.KindSet:                     handleSet,
		syntax.KindCase:                    handleCase,
		syntax.KindCoalesce:                handleCoalesce,
		syntax.KindNullIf:                  handleNullIf,
		syntax.KindOver:                    handleWindowFunction,
		syntax.KindPivot:                   handlePivot,
		syntax.KindUnpivot:                 handleUnpivot,
		syntax.KindApply:                   handleApply,
		syntax.KindJoin:                    handleJoin,
		syntax.KindUnion:                   handleUnion,
	}
}

// resultTableName is the synthetic owner for top-level SELECT output
// columns that are not destined for an INSERT target or SELECT INTO
// temp table (spec §4.5 SelectScalarExpression).
const resultTableName = "Result"

// targetColumnContextKey is the resolve.Context column-context key
// threaded from a SelectScalarExpression/INSERT/UPDATE handler down into
// nested CASE/COALESCE/NULLIF/window handlers (spec §4.3, §4.5).
const targetColumnContextKey = "target"

func currentTargetTable(rc *resolve.Context) string {
	if v, ok := rc.GetMetaString("currentSelectInto"); ok && v != "" {
		return v
	}
	if rc.GetMetaBool("ProcessingInsertSelect") {
		if v, ok := rc.GetMetaString("InsertTargetTable"); ok {
			return v
		}
	}
	return resultTableName
}

func ensureResultTable(rc *resolve.Context) {
	if _, ok := rc.ResolveTable(resultTableName); !ok {
		rc.GetOrCreateTable(resultTableName, lineage.TableKindResultSet, "")
	}
}

func isTempName(name string) bool {
	return len(name) > 0 && name[0] == '#'
}
