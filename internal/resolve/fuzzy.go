package resolve

import (
	"database/sql"
	"math"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingResolver is the pgvector-backed FuzzyResolver described in
// SPEC_FULL.md's domain stack: consulted only after exact/case-insensitive
// column resolution fails (the Unresolvable path, spec §7). It embeds
// known (table,column) names with a lightweight, dependency-free
// character-trigram hash (no external embedding API is required to run
// the analyzer offline) and finds the nearest one by cosine distance.
//
// When a *sql.DB to a pgvector-enabled Postgres catalog is supplied, each
// registered vector is also inserted into its lineage_column_embeddings
// table. Suggest does not query that table: the nearest-neighbor search
// is always the in-process scan over the registered vocabulary.
type EmbeddingResolver struct {
	db   *sql.DB // optional
	dim  int
	vocab []embeddedColumn
}

type embeddedColumn struct {
	table  string
	column string
	vector pgvector.Vector
}

// NewEmbeddingResolver builds a resolver over dim-dimensional vectors. db
// may be nil to run fully in-process.
func NewEmbeddingResolver(db *sql.DB, dim int) *EmbeddingResolver {
	if dim <= 0 {
		dim = 64
	}
	return &EmbeddingResolver{db: db, dim: dim}
}

// Register adds a known (table,column) pair to the resolver's vocabulary.
// resolve.Context.GetOrCreateColumn calls this as it creates Column nodes
// during the normal walk, so every handler's column creation feeds the
// vocabulary without needing to call Register itself.
func (r *EmbeddingResolver) Register(table, column string) {
	r.vocab = append(r.vocab, embeddedColumn{
		table:  table,
		column: column,
		vector: pgvector.NewVector(embedText(column, r.dim)),
	})
	if r.db != nil {
		_, _ = r.db.Exec(
			`INSERT INTO lineage_column_embeddings (table_name, column_name, embedding)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (table_name, column_name) DO NOTHING`,
			table, column, r.vocab[len(r.vocab)-1].vector)
	}
}

// Suggest returns the nearest registered column to columnName by cosine
// similarity, adding 0.05 to the score of columns in tableHint's table so
// the hint decides near-ties (spec §7
// Unresolvable: "record a placeholder... and proceed" is always the
// fallback if Suggest returns ok=false).
func (r *EmbeddingResolver) Suggest(tableHint, columnName string) (string, bool) {
	if len(r.vocab) == 0 {
		return "", false
	}
	target := embedText(columnName, r.dim)

	bestScore := -2.0
	bestTable := ""
	for _, c := range r.vocab {
		score := cosineSimilarity(target, c.vector.Slice())
		if tableHint != "" && strings.EqualFold(c.table, tableHint) {
			score += 0.05 // small nudge toward the hinted table on near-ties
		}
		if score > bestScore {
			bestScore = score
			bestTable = c.table
		}
	}
	if bestScore < 0.35 {
		return "", false
	}
	return bestTable, true
}

// embedText turns s into a deterministic dim-dimensional vector by hashing
// character trigrams into buckets, a standard offline stand-in for a
// learned embedding when no embedding API is configured.
func embedText(s string, dim int) []float32 {
	v := make([]float32, dim)
	s = strings.ToLower(s)
	if len(s) < 3 {
		s = s + "   "
	}
	for i := 0; i+3 <= len(s); i++ {
		h := fnvHash(s[i : i+3])
		v[int(h)%dim] += 1
	}
	norm := float32(0)
	for _, x := range v {
		norm += x * x
	}
	if norm > 0 {
		norm = float32(math.Sqrt(float64(norm)))
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}

func fnvHash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
