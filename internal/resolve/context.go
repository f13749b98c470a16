// Package resolve implements the per-script resolution context (spec
// §4.3): the scope stack that binds identifiers to tables/columns through
// aliases, CTEs, temp tables, table variables, and threaded column
// context.
package resolve

import (
	"strings"
	"sync"

	"github.com/sqllineage/analyzer/internal/lineage"
	"github.com/sqllineage/analyzer/internal/metadata"
)

// Context is one script's resolution state. Tables and aliases are visible
// for the whole script (a T-SQL script's top level has one flat table
// namespace); only metadata is scoped per spec §4.3.
type Context struct {
	graph    *lineage.LineageGraph
	provider metadata.Provider
	fuzzy    FuzzyResolver

	mu            sync.Mutex
	tables        map[string]lineage.NodeID // canonical name -> table id
	aliases       map[string]string         // canonical alias -> canonical table name
	tempTables    map[string]bool           // canonical name, mirrored in tables
	tableVars     map[string]bool           // canonical name, mirrored in tables
	columnContext map[string]lineage.NodeID

	scopeStack []map[string]any
}

// FuzzyResolver is consulted when exact/case-insensitive column resolution
// fails (spec §7 "Unresolvable"); see internal/resolve/fuzzy.go for the
// pgvector-backed implementation wired in SPEC_FULL.md.
type FuzzyResolver interface {
	// Register adds a known (table,column) pair to the resolver's
	// vocabulary. GetOrCreateColumn calls this as it creates Column nodes
	// during the normal walk, so Suggest always has the script's full
	// vocabulary available by the time a reference proves unresolvable.
	Register(table, column string)
	// Suggest returns the nearest known (table,column) for a dangling
	// reference, or ok=false if no usable suggestion exists.
	Suggest(tableHint, columnName string) (table string, ok bool)
}

// New creates a resolution context over g, consulting provider for
// metadata-provider-backed column pre-population (spec §4.2
// NamedTableReference, §6 Metadata provider). provider and fuzzy may both
// be nil.
func New(g *lineage.LineageGraph, provider metadata.Provider, fuzzy FuzzyResolver) *Context {
	return &Context{
		graph:         g,
		provider:      provider,
		fuzzy:         fuzzy,
		tables:        make(map[string]lineage.NodeID),
		aliases:       make(map[string]string),
		tempTables:    make(map[string]bool),
		tableVars:     make(map[string]bool),
		columnContext: make(map[string]lineage.NodeID),
		scopeStack:    []map[string]any{make(map[string]any)},
	}
}

func canon(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// GetOrCreateTable registers name (idempotent via the graph's own index)
// and records it in the flat table namespace under kind. schema is
// informational only; it does not participate in name resolution because
// T-SQL scripts in this corpus's scope resolve unqualified and
// schema-qualified references to the same table node.
func (c *Context) GetOrCreateTable(name string, kind lineage.TableKind, schema string) lineage.NodeID {
	id := c.graph.AddTableNode(name, kind, "", "")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[canon(name)] = id
	switch kind {
	case lineage.TableKindTempTable:
		c.tempTables[canon(name)] = true
	case lineage.TableKindTableVariable:
		c.tableVars[canon(name)] = true
	}
	_ = schema
	return id
}

// RegisterAlias binds alias to the table named tableName within the
// enclosing FROM clause (spec §4.3). Aliases are case-insensitive.
func (c *Context) RegisterAlias(alias, tableName string) {
	if alias == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[canon(alias)] = canon(tableName)
}

// GetOrCreateColumn registers (table,name) against the graph, attaches it
// to its owning table node if known, and returns its ID.
func (c *Context) GetOrCreateColumn(table, name, dtype string) lineage.NodeID {
	id := c.graph.AddColumnNode(table, name, dtype, lineage.ColumnFlags{})
	if tid, ok := c.graph.GetTable(table); ok {
		c.graph.AttachColumnToTable(tid, id)
	}
	if c.fuzzy != nil {
		c.fuzzy.Register(table, name)
	}
	return id
}

// ResolveTable looks up nameOrAlias in order: direct table name, temp
// tables, table variables, then the alias map (spec §4.3). Returns the
// canonical table name and whether it was found; the caller still needs
// GetOrCreateTable (or GetTable) to obtain the node ID, since a resolved
// name might not yet have a backing node for a table introduced purely by
// reference (e.g. an unknown table, spec B2).
func (c *Context) ResolveTable(nameOrAlias string) (string, bool) {
	key := canon(nameOrAlias)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[key]; ok {
		return key, true
	}
	if c.tempTables[key] {
		return key, true
	}
	if c.tableVars[key] {
		return key, true
	}
	if target, ok := c.aliases[key]; ok {
		return target, true
	}
	return "", false
}

// KnownTableNames returns every table name currently visible in the flat
// namespace, used by the expression linker's single-table-in-scope
// fallback (spec §4.6).
func (c *Context) KnownTableNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	return out
}

// Provider exposes the metadata provider so handlers can pre-populate
// columns for NamedTableReference (spec §4.5). May be nil.
func (c *Context) Provider() metadata.Provider { return c.provider }

// Fuzzy exposes the optional fuzzy resolver. May be nil.
func (c *Context) Fuzzy() FuzzyResolver { return c.fuzzy }

// Graph returns the backing lineage graph.
func (c *Context) Graph() *lineage.LineageGraph { return c.graph }

// SetColumnContext threads the "current target column" into nested
// expression processing (spec §4.3), keyed by an arbitrary caller-chosen
// key (handlers use "target" for the common case).
func (c *Context) SetColumnContext(key string, id lineage.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.columnContext[key] = id
}

// GetColumnContext returns the column previously threaded under key.
func (c *Context) GetColumnContext(key string) (lineage.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.columnContext[key]
	return id, ok
}

// ClearColumnContext removes key, used when a handler's caller restores
// the previous target after a nested expression is fully processed.
func (c *Context) ClearColumnContext(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.columnContext, key)
}
