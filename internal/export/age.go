package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sqllineage/analyzer/internal/lineage"
)

// AGESink mirrors a finished LineageGraph into an Apache AGE graph over
// Postgres, issuing each Cypher statement wrapped in AGE's cypher() SQL
// function.
type AGESink struct {
	db        *sql.DB
	graphName string
}

// NewAGESink reads PG_HOST, PG_PORT, PG_USER, PG_PASS, PG_DB, and
// AGE_GRAPH_NAME from the environment and connects.
func NewAGESink() (*AGESink, error) {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASS")
	dbname := envOr("PG_DB", "postgres")
	graphName := envOr("AGE_GRAPH_NAME", "sql_lineage")

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

	sink := &AGESink{db: db, graphName: graphName}
	if err := sink.initializeAGE(); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *AGESink) initializeAGE() error {
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS age`); err != nil {
		return fmt.Errorf("failed to load AGE extension: %w", err)
	}
	if _, err := s.db.Exec(`SELECT create_graph($1)`, s.graphName); err != nil {
		// create_graph raises if it already exists; AGE has no IF NOT EXISTS form.
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create AGE graph: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *AGESink) Close(ctx context.Context) error { return s.db.Close() }

// Write upserts every node and edge of g.
func (s *AGESink) Write(ctx context.Context, g *lineage.LineageGraph) error {
	for _, kind := range []lineage.NodeKind{lineage.NodeKindTable, lineage.NodeKindColumn, lineage.NodeKindExpression} {
		for _, id := range g.NodesOfType(kind) {
			n, err := g.GetNode(id)
			if err != nil {
				continue
			}
			if err := s.upsertNode(ctx, n); err != nil {
				return err
			}
		}
	}
	for id := lineage.EdgeID(1); ; id++ {
		e, err := g.GetEdge(id)
		if err != nil {
			break
		}
		if err := s.upsertEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *AGESink) upsertNode(ctx context.Context, n lineage.Node) error {
	cypher := fmt.Sprintf(`
		MERGE (x:%s {lineageId: params.id})
		ON CREATE SET x.name = params.name, x.objectName = params.objectName, x.created = localdatetime()
		ON MATCH SET x.name = params.name, x.objectName = params.objectName, x.updated = localdatetime()
	`, n.Kind.String())
	return s.executeCypher(ctx, cypher, map[string]any{
		"id":         int64(n.ID),
		"name":       n.Name,
		"objectName": n.ObjectName,
	})
}

func (s *AGESink) upsertEdge(ctx context.Context, e lineage.Edge) error {
	cypher := `
		MATCH (src {lineageId: params.src}), (tgt {lineageId: params.tgt})
		MERGE (src)-[r:LINEAGE {edgeType: params.edgeType, operation: params.operation}]->(tgt)
		ON CREATE SET r.sqlExpression = params.sqlExpression, r.created = localdatetime()
	`
	return s.executeCypher(ctx, cypher, map[string]any{
		"src":           int64(e.SourceID),
		"tgt":           int64(e.TargetID),
		"edgeType":      e.Type.String(),
		"operation":     e.Operation,
		"sqlExpression": e.SQLExpression,
	})
}

// executeCypher wraps cypher in the `WITH {...} AS params` + SQL-function
// shape AGE requires.
func (s *AGESink) executeCypher(ctx context.Context, cypher string, params map[string]any) error {
	paramStr := ""
	if len(params) > 0 {
		var pairs []string
		for k, v := range params {
			pairs = append(pairs, fmt.Sprintf("%s: %s", k, formatAGEValue(v)))
		}
		paramStr = fmt.Sprintf("WITH {%s} AS params ", strings.Join(pairs, ", "))
	}
	query := fmt.Sprintf(`SELECT * FROM cypher('%s', $$ %s%s $$) as (result agtype);`, s.graphName, paramStr, cypher)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func formatAGEValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(val, "'", "''"))
	case int, int32, int64:
		return fmt.Sprintf("%d", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("'%v'", val)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
