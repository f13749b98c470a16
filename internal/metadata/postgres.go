package metadata

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// init loads environment variables from .env (if present), the same
// pattern every database-backed client in this codebase uses.
func init() {
	_ = godotenv.Load()
}

// PostgresProvider is a Provider backed by a live Postgres catalog,
// queried through information_schema.columns. It caches per-table results
// since a script typically re-references the same handful of tables many
// times during one walk.
type PostgresProvider struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string][]Column
}

// NewPostgresProvider reads PG_HOST, PG_PORT, PG_USER, PG_PASS, PG_DB from
// env and connects, mirroring the connection-string idiom used throughout
// this codebase's other database clients.
func NewPostgresProvider() (*PostgresProvider, error) {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASS")
	dbname := os.Getenv("PG_DB")
	if dbname == "" {
		dbname = "postgres"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if pass != "" {
		connStr += fmt.Sprintf(" password=%s", pass)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresProvider{db: db, cache: make(map[string][]Column)}, nil
}

// Close releases the underlying connection pool.
func (p *PostgresProvider) Close() error { return p.db.Close() }

func (p *PostgresProvider) TableExists(tableName string) bool {
	return len(p.GetTableColumns(tableName)) > 0
}

func (p *PostgresProvider) GetTableColumns(tableName string) []Column {
	key := normalize(tableName)

	p.mu.RLock()
	if cols, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return cols
	}
	p.mu.RUnlock()

	schema, table := splitSchema(tableName)
	rows, err := p.db.Query(`
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND lower(table_name) = lower($2)
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			continue
		}
		cols = append(cols, c)
	}

	p.mu.Lock()
	p.cache[key] = cols
	p.mu.Unlock()
	return cols
}

func splitSchema(tableName string) (schema, table string) {
	if i := strings.Index(tableName, "."); i >= 0 {
		return tableName[:i], tableName[i+1:]
	}
	return "public", tableName
}
