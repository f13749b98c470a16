// Package export serializes a finished LineageGraph to the output
// formats spec §6 names: a plain JSON dump with the field names it
// specifies, plus the two graph-database sinks this module's expanded
// scope wires in (Neo4j and Apache AGE).
package export

import (
	"encoding/json"
	"io"

	"github.com/sqllineage/analyzer/internal/lineage"
)

// nodeJSON and edgeJSON mirror exactly the field names spec §6 requires:
// "id, name, type, objectName, schemaName, databaseName, metadata for
// nodes (plus variant-specific fields dataType, tableOwner, isNullable,
// isComputed, tableType, columns, alias, definition, expressionType,
// expression, resultType); for edges: id, sourceId, targetId, type,
// operation, sqlExpression."
type nodeJSON struct {
	ID           lineage.NodeID   `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	ObjectName   string           `json:"objectName"`
	SchemaName   string           `json:"schemaName"`
	DatabaseName string           `json:"databaseName"`
	Metadata     map[string]any   `json:"metadata,omitempty"`

	DataType   string         `json:"dataType,omitempty"`
	TableOwner string         `json:"tableOwner,omitempty"`
	IsNullable bool           `json:"isNullable,omitempty"`
	IsComputed bool           `json:"isComputed,omitempty"`

	TableType string          `json:"tableType,omitempty"`
	Alias     string          `json:"alias,omitempty"`
	Definition string         `json:"definition,omitempty"`
	Columns   []lineage.NodeID `json:"columns,omitempty"`

	ExpressionType string `json:"expressionType,omitempty"`
	Expression     string `json:"expression,omitempty"`
	ResultType     string `json:"resultType,omitempty"`
}

type edgeJSON struct {
	ID            lineage.EdgeID `json:"id"`
	SourceID      lineage.NodeID `json:"sourceId"`
	TargetID      lineage.NodeID `json:"targetId"`
	Type          string         `json:"type"`
	Operation     string         `json:"operation"`
	SQLExpression string         `json:"sqlExpression"`
}

type graphJSON struct {
	SourceSQL string     `json:"sourceSql"`
	Nodes     []nodeJSON `json:"nodes"`
	Edges     []edgeJSON `json:"edges"`
}

// WriteJSON serializes every node/edge currently reachable via g's
// NodesOfType index into w.
func WriteJSON(w io.Writer, g *lineage.LineageGraph) error {
	doc := graphJSON{SourceSQL: g.SourceSQL}

	for _, kind := range []lineage.NodeKind{lineage.NodeKindColumn, lineage.NodeKindTable, lineage.NodeKindExpression} {
		for _, id := range g.NodesOfType(kind) {
			n, err := g.GetNode(id)
			if err != nil {
				continue
			}
			doc.Nodes = append(doc.Nodes, toNodeJSON(n))
		}
	}

	for id := lineage.EdgeID(1); ; id++ {
		e, err := g.GetEdge(id)
		if err != nil {
			break
		}
		doc.Edges = append(doc.Edges, edgeJSON{
			ID:            e.ID,
			SourceID:      e.SourceID,
			TargetID:      e.TargetID,
			Type:          e.Type.String(),
			Operation:     e.Operation,
			SQLExpression: e.SQLExpression,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func toNodeJSON(n lineage.Node) nodeJSON {
	nj := nodeJSON{
		ID:           n.ID,
		Name:         n.Name,
		Type:         n.Kind.String(),
		ObjectName:   n.ObjectName,
		SchemaName:   n.Schema,
		DatabaseName: n.Database,
		Metadata:     n.Metadata,
	}
	switch n.Kind {
	case lineage.NodeKindColumn:
		nj.DataType = n.DataType
		nj.TableOwner = n.TableOwner
		nj.IsNullable = n.IsNullable
		nj.IsComputed = n.IsComputed
	case lineage.NodeKindTable:
		nj.TableType = n.TableType.String()
		nj.Alias = n.Alias
		nj.Definition = n.Definition
		nj.Columns = n.Columns
	case lineage.NodeKindExpression:
		nj.ExpressionType = n.ExpressionKind.String()
		nj.Expression = n.Expression
		nj.ResultType = n.ResultType
	}
	return nj
}
