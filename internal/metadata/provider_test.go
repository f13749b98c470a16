package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryProviderLooksUpCaseInsensitively(t *testing.T) {
	p := NewInMemoryProvider(map[string][]Column{
		"orders": {{Name: "id", DataType: "int"}, {Name: "total", DataType: "decimal"}},
	})

	assert.True(t, p.TableExists("Orders"))
	assert.True(t, p.TableExists("ORDERS"))
	assert.False(t, p.TableExists("Customers"))

	cols := p.GetTableColumns("ORDERS")
	assert.Len(t, cols, 2)
}

func TestInMemoryProviderRegisterReplaces(t *testing.T) {
	p := NewInMemoryProvider(nil)
	p.Register("T1", []Column{{Name: "a"}})
	assert.Len(t, p.GetTableColumns("t1"), 1)

	p.Register("T1", []Column{{Name: "a"}, {Name: "b"}})
	assert.Len(t, p.GetTableColumns("t1"), 2)
}

func TestInMemoryProviderUnknownTableReturnsEmpty(t *testing.T) {
	p := NewInMemoryProvider(nil)
	assert.Empty(t, p.GetTableColumns("missing"))
	assert.False(t, p.TableExists("missing"))
}
