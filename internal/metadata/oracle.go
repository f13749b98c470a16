package metadata

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/godror/godror"
)

// OracleProvider is a Provider backed by Oracle's data dictionary
// (ALL_TAB_COLUMNS), connecting with credentials read from the
// environment.
type OracleProvider struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string][]Column
}

// NewOracleProvider reads ORACLE_USER, ORACLE_PASS, ORACLE_DSN from env
// and connects.
func NewOracleProvider() (*OracleProvider, error) {
	user := os.Getenv("ORACLE_USER")
	pass := os.Getenv("ORACLE_PASS")
	dsn := os.Getenv("ORACLE_DSN")
	if user == "" || pass == "" || dsn == "" {
		return nil, fmt.Errorf("ORACLE_USER, ORACLE_PASS, and ORACLE_DSN environment variables must be set")
	}

	connStr := fmt.Sprintf(`user="%s" password="%s" connectString="%s"`, user, pass, dsn)
	db, err := sql.Open("godror", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)

	return &OracleProvider{db: db, cache: make(map[string][]Column)}, nil
}

// Close releases the underlying connection pool.
func (p *OracleProvider) Close() error { return p.db.Close() }

func (p *OracleProvider) TableExists(tableName string) bool {
	return len(p.GetTableColumns(tableName)) > 0
}

func (p *OracleProvider) GetTableColumns(tableName string) []Column {
	key := normalize(tableName)

	p.mu.RLock()
	if cols, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return cols
	}
	p.mu.RUnlock()

	rows, err := p.db.Query(`
		SELECT column_name, data_type
		FROM all_tab_columns
		WHERE table_name = :1
		ORDER BY column_id`, strings.ToUpper(tableName))
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
