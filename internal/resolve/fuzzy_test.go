package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingResolverSuggestsNearestRegisteredColumn(t *testing.T) {
	r := NewEmbeddingResolver(nil, 32)
	r.Register("orders", "customer_id")
	r.Register("orders", "order_total")

	table, ok := r.Suggest("", "custmer_id") // common one-letter typo
	require.True(t, ok)
	assert.Equal(t, "orders", table)
}

func TestEmbeddingResolverNoSuggestionBeforeAnyRegistration(t *testing.T) {
	r := NewEmbeddingResolver(nil, 32)
	_, ok := r.Suggest("", "customer_id")
	assert.False(t, ok, "an empty vocabulary can never produce a suggestion")
}

func TestEmbeddingResolverNudgesTowardHintedTableOnNearTie(t *testing.T) {
	r := NewEmbeddingResolver(nil, 32)
	r.Register("orders", "id")
	r.Register("customers", "id")

	table, ok := r.Suggest("customers", "id")
	require.True(t, ok)
	assert.Equal(t, "customers", table, "an exact-name match in the hinted table should win any near-tie")
}

func TestEmbeddingResolverDefaultsDimWhenNonPositive(t *testing.T) {
	r := NewEmbeddingResolver(nil, 0)
	assert.Equal(t, 64, r.dim)
}
