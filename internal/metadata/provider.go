// Package metadata defines the read-only metadata-provider contract (spec
// §6) that supplies known table columns for wildcard/implicit column
// lists, plus an in-memory reference implementation and the two
// database-backed implementations wired in SPEC_FULL.md's domain stack.
package metadata

// Column is one (name,dtype) pair as reported by a metadata provider.
type Column struct {
	Name     string
	DataType string
}

// Provider is the read-only external collaborator the analyzer consults
// when it needs to know a table's declared columns (e.g. to expand a
// wildcard SELECT, or to pre-create Column nodes for a NamedTableReference
// per spec §4.5). When absent, handlers still work but produce fewer
// pre-created column nodes (spec §6).
type Provider interface {
	TableExists(tableName string) bool
	GetTableColumns(tableName string) []Column
}

// InMemoryProvider is a static, in-memory Provider, primarily useful for
// tests and for scripts analyzed without a live catalog connection.
type InMemoryProvider struct {
	tables map[string][]Column
}

// NewInMemoryProvider builds a provider from a map of lower-cased table
// name to its columns. The entries are copied into the provider's own
// map, which Register can extend later; the passed map is not kept.
func NewInMemoryProvider(tables map[string][]Column) *InMemoryProvider {
	if tables == nil {
		tables = make(map[string][]Column)
	}
	p := &InMemoryProvider{tables: make(map[string][]Column, len(tables))}
	for name, cols := range tables {
		p.Register(name, cols)
	}
	return p
}

// Register adds or replaces the column list for a table.
func (p *InMemoryProvider) Register(tableName string, cols []Column) {
	p.tables[normalize(tableName)] = cols
}

func (p *InMemoryProvider) TableExists(tableName string) bool {
	_, ok := p.tables[normalize(tableName)]
	return ok
}

func (p *InMemoryProvider) GetTableColumns(tableName string) []Column {
	return p.tables[normalize(tableName)]
}

func normalize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
