package database

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/spangraph/spangraph/api/schemas"
)

// schemaCatalogSQL looks up a graph's schema document in the backend catalog.
const schemaCatalogSQL = `SELECT property_graph_name, property_graph_metadata_json
FROM information_schema.property_graphs
WHERE property_graph_name = @graph_name`

// CloudDatabase is the live adapter over a Cloud Spanner database. The client
// is used as a black box; every query runs on its own read-only single-use
// snapshot, so no transaction state crosses requests.
type CloudDatabase struct {
	client *spanner.Client
	log    *zap.Logger
}

// Compile-time check that the live adapter satisfies the contract.
var _ schemas.GraphDatabase = (*CloudDatabase)(nil)

// NewCloudDatabase connects to the database identified by the
// (project, instance, database) triple.
func NewCloudDatabase(ctx context.Context, project, instance, database string, logger *zap.Logger) (*CloudDatabase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, database)
	client, err := spanner.NewClient(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create spanner client for %s: %w", path, err)
	}
	return &CloudDatabase{
		client: client,
		log:    logger.Named("CloudDatabase").With(zap.String("database", path)),
	}, nil
}

// Close releases the underlying client's sessions.
func (c *CloudDatabase) Close() {
	c.client.Close()
}

// schemaForGraph fetches the schema document for the graph a query targets.
// Malformed queries, catalog misses and lookup failures all yield no document;
// schema absence is not an error.
func (c *CloudDatabase) schemaForGraph(ctx context.Context, query string) json.RawMessage {
	graphName, ok := extractGraphName(query)
	if !ok {
		return nil
	}

	stmt := spanner.Statement{
		SQL:    schemaCatalogSQL,
		Params: map[string]any{"graph_name": graphName},
	}
	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		if err != iterator.Done {
			c.log.Warn("schema catalog lookup failed", zap.String("graph", graphName), zap.Error(err))
		}
		return nil
	}

	var name string
	var doc spanner.NullJSON
	if err := row.Columns(&name, &doc); err != nil {
		c.log.Warn("failed to read schema catalog row", zap.String("graph", graphName), zap.Error(err))
		return nil
	}
	if !doc.Valid {
		return nil
	}

	raw, err := json.Marshal(doc.Value)
	if err != nil {
		return nil
	}
	return raw
}

// ExecuteQuery runs the query on a read-only, point-in-time snapshot. Graph
// shaped queries first resolve their schema document from the catalog (unless
// isTestQuery). Any execution failure is returned as QueryResult.Err together
// with whatever schema was already resolved.
func (c *CloudDatabase) ExecuteQuery(ctx context.Context, query string, limit int64, isTestQuery bool) schemas.QueryResult {
	var schemaJSON json.RawMessage
	if !isTestQuery {
		schemaJSON = c.schemaForGraph(ctx, query)
	}

	stmt := spanner.Statement{SQL: query}
	if limit > 0 {
		stmt.Params = map[string]any{"limit": limit}
	}

	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var rawRows []*spanner.Row
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			c.log.Debug("query execution failed", zap.Error(err))
			return schemas.QueryResult{
				Data:   map[string][]any{},
				Rows:   [][]any{},
				Schema: schemaJSON,
				Err:    err,
			}
		}
		rawRows = append(rawRows, row)
	}

	fields := fieldInfoList(iter.Metadata)
	data := make(map[string][]any, len(fields))
	for _, field := range fields {
		data[field.Name] = []any{}
	}
	rows := make([][]any, 0, len(rawRows))

	if len(fields) == 0 {
		return schemas.QueryResult{Data: data, Fields: fields, Rows: rows, Schema: schemaJSON}
	}

	for _, row := range rawRows {
		decoded := make([]any, 0, len(fields))
		for i, field := range fields {
			var gcv spanner.GenericColumnValue
			if err := row.Column(i, &gcv); err != nil {
				return schemas.QueryResult{
					Data:   map[string][]any{},
					Rows:   [][]any{},
					Schema: schemaJSON,
					Err:    fmt.Errorf("failed to decode column %q: %w", field.Name, err),
				}
			}
			value := decodeColumnValue(gcv.Type, gcv.Value)
			data[field.Name] = append(data[field.Name], value)
			decoded = append(decoded, value)
		}
		rows = append(rows, decoded)
	}

	return schemas.QueryResult{Data: data, Fields: fields, Rows: rows, Schema: schemaJSON}
}
