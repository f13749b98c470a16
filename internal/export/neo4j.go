package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sqllineage/analyzer/internal/lineage"
)

// Neo4jSink mirrors a finished LineageGraph into Neo4j as :Column/:Table/
// :Expression nodes and typed relationships, using the same
// MERGE-on-write idiom this codebase's other graph-database clients use.
type Neo4jSink struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jSink reads NEO4J_URI, NEO4J_USER, NEO4J_PASS from the
// environment and connects.
func NewNeo4jSink() (*Neo4jSink, error) {
	uri := os.Getenv("NEO4J_URI")
	user := os.Getenv("NEO4J_USER")
	pass := os.Getenv("NEO4J_PASS")
	if uri == "" || user == "" || pass == "" {
		return nil, fmt.Errorf("NEO4J_URI, NEO4J_USER, and NEO4J_PASS environment variables must be set")
	}

	auth := neo4j.BasicAuth(user, pass, "")
	d, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 50
		cfg.SocketConnectTimeout = 5 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	return &Neo4jSink{driver: d}, nil
}

// Close terminates the Neo4j driver connection.
func (s *Neo4jSink) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// Write upserts every node and edge of g.
func (s *Neo4jSink) Write(ctx context.Context, g *lineage.LineageGraph) error {
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

func (s *Neo4jSink) upsertNode(ctx context.Context, n lineage.Node) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	label := n.Kind.String()
	cypher := fmt.Sprintf(`
        MERGE (x:%s {lineageId: $id})
        ON CREATE SET x.name = $name, x.objectName = $objectName, x.created = datetime()
        ON MATCH SET x.name = $name, x.objectName = $objectName, x.updated = datetime()
    `, label)
	params := map[string]any{
		"id":         int64(n.ID),
		"name":       n.Name,
		"objectName": n.ObjectName,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	return err
}

func (s *Neo4jSink) upsertEdge(ctx context.Context, e lineage.Edge) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	cypher := `
        MATCH (src {lineageId: $src}), (tgt {lineageId: $tgt})
        MERGE (src)-[r:LINEAGE {edgeType: $type, operation: $operation}]->(tgt)
        ON CREATE SET r.sqlExpression = $sqlExpression, r.created = datetime()
    `
	params := map[string]any{
		"src":           int64(e.SourceID),
		"tgt":           int64(e.TargetID),
		"type":          e.Type.String(),
		"operation":     e.Operation,
		"sqlExpression": e.SQLExpression,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	return err
}
