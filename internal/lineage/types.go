package lineage

// NodeID opaquely identifies a node within one graph's lifetime. IDs are
// never interpreted across graphs (spec §4.1).
type NodeID uint64

// EdgeID opaquely identifies an edge within one graph's lifetime.
type EdgeID uint64

// NodeKind distinguishes the three vertex variants a LineageGraph holds.
type NodeKind int

const (
	NodeKindColumn NodeKind = iota
	NodeKindTable
	NodeKindExpression
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindColumn:
		return "Column"
	case NodeKindTable:
		return "Table"
	case NodeKindExpression:
		return "Expression"
	default:
		return "Unknown"
	}
}

// TableKind distinguishes how a Table node came to exist.
type TableKind int

const (
	TableKindBaseTable TableKind = iota
	TableKindView
	TableKindCTE
	TableKindTempTable
	TableKindTableVariable
	TableKindDerivedTable
	TableKindResultSet
)

func (k TableKind) String() string {
	switch k {
	case TableKindBaseTable:
		return "BaseTable"
	case TableKindView:
		return "View"
	case TableKindCTE:
		return "CTE"
	case TableKindTempTable:
		return "TempTable"
	case TableKindTableVariable:
		return "TableVariable"
	case TableKindDerivedTable:
		return "DerivedTable"
	case TableKindResultSet:
		return "ResultSet"
	default:
		return "Unknown"
	}
}

// ExpressionKind distinguishes the shape of an Expression node.
type ExpressionKind int

const (
	ExpressionKindFunction ExpressionKind = iota
	ExpressionKindCase
	ExpressionKindCoalesce
	ExpressionKindNullIf
	ExpressionKindWindow
	ExpressionKindPivot
	ExpressionKindUnpivot
	ExpressionKindColumnReference
	ExpressionKindArithmetic
	ExpressionKindPredicate
)

func (k ExpressionKind) String() string {
	switch k {
	case ExpressionKindFunction:
		return "Function"
	case ExpressionKindCase:
		return "Case"
	case ExpressionKindCoalesce:
		return "Coalesce"
	case ExpressionKindNullIf:
		return "NullIf"
	case ExpressionKindWindow:
		return "Window"
	case ExpressionKindPivot:
		return "Pivot"
	case ExpressionKindUnpivot:
		return "Unpivot"
	case ExpressionKindColumnReference:
		return "ColumnReference"
	case ExpressionKindArithmetic:
		return "Arithmetic"
	case ExpressionKindPredicate:
		return "Predicate"
	default:
		return "Unknown"
	}
}

// EdgeType is the canonical, fixed-casing label for an edge's provenance
// kind. spec.md's Open Questions note the source was inconsistent between
// "direct" and Direct; this implementation always uses the Go identifier's
// String() form below and never a raw literal.
type EdgeType int

const (
	EdgeDirect EdgeType = iota
	EdgeIndirect
	EdgeJoin
	EdgeGroupBy
	EdgeFilter
	EdgeParameter
)

func (t EdgeType) String() string {
	switch t {
	case EdgeDirect:
		return "Direct"
	case EdgeIndirect:
		return "Indirect"
	case EdgeJoin:
		return "Join"
	case EdgeGroupBy:
		return "GroupBy"
	case EdgeFilter:
		return "Filter"
	case EdgeParameter:
		return "Parameter"
	default:
		return "Unknown"
	}
}

// Node is a vertex in the lineage graph. Every node carries the common
// fields regardless of Kind; variant-specific fields are populated only
// for the matching Kind (spec §3).
type Node struct {
	ID         NodeID
	Kind       NodeKind
	Name       string
	ObjectName string
	Schema     string
	Database   string
	Metadata   map[string]any

	// Column-variant fields.
	DataType    string
	TableOwner  string
	IsNullable  bool
	IsComputed  bool

	// Table-variant fields.
	TableType  TableKind
	Alias      string
	Definition string
	Columns    []NodeID

	// Expression-variant fields.
	ExpressionKind ExpressionKind
	Expression     string
	ResultType     string
	OwningContext  string
}

// Edge is a directed, labeled, deduplicated arc between two nodes.
type Edge struct {
	ID            EdgeID
	SourceID      NodeID
	TargetID      NodeID
	Type          EdgeType
	Operation     string
	SQLExpression string
}

// edgeKey is the deduplication/index key for an edge: spec I2 dedups by
// (sourceId, targetId, edge-type).
type edgeKey struct {
	Source NodeID
	Target NodeID
	Type   EdgeType
}

// columnKey is the case-insensitive (table,column) dedup key for Column
// nodes (spec I2).
type columnKey struct {
	table  string
	column string
}
