// Package syntax declares the contract this analyzer requires from an
// external T-SQL parser (spec §6): the ability to visit each fragment,
// identify its kind from a known closed set, and enumerate its structural
// children. The parser itself is out of scope (spec §1); this package
// only names the shape its output must have.
package syntax

// Kind identifies a fragment's syntactic role from the closed set spec §6
// requires the external parser to expose. Dialect-specific variation
// within one Kind (e.g. different T-SQL versions shaping a JOIN
// differently) is handled by structural enumeration (Slot/List/
// Children), never by a second, more specific Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindDeclareTable
	KindCreateProcedure
	KindAlterProcedure
	KindExecute
	KindCTE
	KindJoin
	KindUnion
	KindCase
	KindCoalesce
	KindNullIf
	KindFunction
	KindBinary
	KindParenthesis
	KindColumnReference
	KindLiteral
	KindOver
	KindPivot
	KindUnpivot
	KindApply
	KindSet
	KindDeclareVar
	KindNamedTableReference
	KindSelectScalarExpression
)

func (k Kind) String() string {
	names := map[Kind]string{
		KindUnknown: "Unknown", KindSelect: "Select", KindInsert: "Insert",
		KindUpdate: "Update", KindDelete: "Delete", KindCreateTable: "CreateTable",
		KindDeclareTable: "DeclareTable", KindCreateProcedure: "CreateProcedure",
		KindAlterProcedure: "AlterProcedure", KindExecute: "Execute", KindCTE: "CTE",
		KindJoin: "Join", KindUnion: "Union", KindCase: "Case", KindCoalesce: "Coalesce",
		KindNullIf: "NullIf", KindFunction: "Function", KindBinary: "Binary",
		KindParenthesis: "Parenthesis", KindColumnReference: "ColumnReference",
		KindLiteral: "Literal", KindOver: "Over", KindPivot: "Pivot",
		KindUnpivot: "Unpivot", KindApply: "Apply", KindSet: "Set",
		KindDeclareVar: "DeclareVar", KindNamedTableReference: "NamedTableReference",
		KindSelectScalarExpression: "SelectScalarExpression",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "Unknown"
}

// Fragment is one node of the external parser's syntax tree. Handlers and
// the walker access everything through this interface rather than a
// concrete parser type, so the core is agnostic to parser/dialect version
// (spec §6: "handlers must fall back to structural enumeration rather
// than relying on a specific named slot").
type Fragment interface {
	// Kind identifies this fragment's syntactic role.
	Kind() Kind

	// Text returns the fragment's original source text, used for
	// Expression.Expression, Edge.SQLExpression, and diagnostics.
	Text() string

	// Children enumerates this fragment's structural sub-fragments, in
	// source order: named slots first (if any), then ordered lists
	// flattened in declaration order. The walker schedules exactly these
	// when a handler defers to default traversal (spec §4.4 step 5).
	Children() []Fragment

	// Slot returns the named child at key (e.g. "Predicate", "Left",
	// "Right"), or nil if that slot is absent for this fragment/dialect.
	// Handlers that need a specific relationship (not just "all children")
	// use this; it must never panic on a missing or dialect-varying slot.
	Slot(key string) Fragment

	// List returns the named ordered child list at key (e.g. "SelectElements",
	// "WhenClauses", "Arguments"), or nil if absent.
	List(key string) []Fragment
}

// Identity is implemented by Fragment values that can report a stable
// pointer-equality identity for the walker's visited set (spec §4.4 step
// 1: "If already visited (by identity/pointer hash), skip"). Fragment
// implementations backed by a pointer type can return themselves, as
// *Node does.
type Identity interface {
	IdentityKey() any
}
