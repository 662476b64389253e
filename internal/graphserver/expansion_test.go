package graphserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExpansionRequest() map[string]any {
	return map[string]any{
		"project":     "test-project",
		"instance":    "test-instance",
		"database":    "test-database",
		"graph":       "test_graph",
		"uid":         "node_1",
		"node_labels": []any{"Person"},
		"direction":   "OUTGOING",
	}
}

func TestValidateNodeExpansionRequest(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		properties, direction, err := validateNodeExpansionRequest(validExpansionRequest())
		require.NoError(t, err)
		assert.Empty(t, properties)
		assert.Equal(t, DirectionOutgoing, direction)
	})

	t.Run("missing fields reported together", func(t *testing.T) {
		request := validExpansionRequest()
		delete(request, "uid")
		delete(request, "direction")

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required fields")
		assert.Contains(t, err.Error(), "uid")
		assert.Contains(t, err.Error(), "direction")
	})

	t.Run("nil field counts as missing", func(t *testing.T) {
		request := validExpansionRequest()
		request["graph"] = nil

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "graph")
	})

	t.Run("invalid direction rejected", func(t *testing.T) {
		request := validExpansionRequest()
		request["direction"] = "SIDEWAYS"

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid direction: must be INCOMING or OUTGOING")
		assert.Contains(t, err.Error(), "SIDEWAYS")
	})

	t.Run("direction is case sensitive", func(t *testing.T) {
		request := validExpansionRequest()
		request["direction"] = "outgoing"

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
	})

	t.Run("property must be an object", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{"not an object"}

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "property at index 0 must be an object")
	})

	t.Run("property missing fields", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "name", "value": "alice"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required fields (key, value, type)")
	})

	t.Run("unknown property type rejected", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "name", "value": "alice", "type": "VARCHAR"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid property type: VARCHAR")
	})

	t.Run("int64 value mismatch names the key", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "age", "value": "abc", "type": "INT64"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `property "age" value must be a number for type INT64`)
	})

	t.Run("int64 accepts json numbers and digit strings", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "age", "value": json.Number("42"), "type": "INT64"},
			map[string]any{"key": "count", "value": "123", "type": "NUMERIC"},
		}

		properties, _, err := validateNodeExpansionRequest(request)
		require.NoError(t, err)
		require.Len(t, properties, 2)
		assert.Equal(t, "age", properties[0].Key)
	})

	t.Run("float accepts numbers and parseable strings", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "score", "value": json.Number("1.5"), "type": "FLOAT64"},
			map[string]any{"key": "ratio", "value": "2.25", "type": "FLOAT32"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.NoError(t, err)
	})

	t.Run("bool value mismatch rejected", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "active", "value": "yes", "type": "BOOL"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `property "active" value must be a boolean for type BOOL`)
	})

	t.Run("bool accepts bool and textual true false", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "active", "value": true, "type": "BOOL"},
			map[string]any{"key": "deleted", "value": "False", "type": "BOOL"},
		}

		_, _, err := validateNodeExpansionRequest(request)
		require.NoError(t, err)
	})

	t.Run("property type case insensitive", func(t *testing.T) {
		request := validExpansionRequest()
		request["node_properties"] = []any{
			map[string]any{"key": "name", "value": "alice", "type": "string"},
		}

		properties, _, err := validateNodeExpansionRequest(request)
		require.NoError(t, err)
		require.Len(t, properties, 1)
		assert.Equal(t, "STRING", properties[0].Type)
	})
}

func TestBuildExpansionQuery(t *testing.T) {
	t.Run("outgoing with numeric property", func(t *testing.T) {
		query := buildExpansionQuery(
			"my_graph",
			"node_7",
			[]string{"Person"},
			[]nodeProperty{{Key: "id", Value: json.Number("123"), Type: "INT64"}},
			DirectionOutgoing,
			"",
		)

		assert.Contains(t, query, "GRAPH my_graph")
		assert.Contains(t, query, `LET uid = "node_7"`)
		assert.Contains(t, query, "MATCH (n: Person)")
		assert.Contains(t, query, "n.id=123")
		assert.Contains(t, query, "and STRING(TO_JSON(n).identifier) = uid")
		assert.Contains(t, query, "(n)-[e]->(d)")
		assert.Contains(t, query, "RETURN TO_JSON(e) as e, TO_JSON(d) as d")
	})

	t.Run("incoming reverses the path", func(t *testing.T) {
		query := buildExpansionQuery("g", "u", nil, nil, DirectionIncoming, "")
		assert.Contains(t, query, "(n)<-[e]-(d)")
		assert.NotContains(t, query, "(n)-[e]->(d)")
	})

	t.Run("edge label narrows the traversal", func(t *testing.T) {
		query := buildExpansionQuery("g", "u", nil, nil, DirectionOutgoing, "Owns")
		assert.Contains(t, query, "[e:Owns]")
	})

	t.Run("multiple labels joined with ampersand", func(t *testing.T) {
		query := buildExpansionQuery("g", "u", []string{"Person", "Human"}, nil, DirectionOutgoing, "")
		assert.Contains(t, query, "(n: Person & Human)")
	})

	t.Run("string property triple quoted", func(t *testing.T) {
		query := buildExpansionQuery(
			"g", "u", nil,
			[]nodeProperty{{Key: "name", Value: "alice", Type: "STRING"}},
			DirectionOutgoing, "",
		)
		assert.Contains(t, query, "n.name='''alice'''")
	})

	t.Run("multiple properties joined with and", func(t *testing.T) {
		query := buildExpansionQuery(
			"g", "u", nil,
			[]nodeProperty{
				{Key: "id", Value: json.Number("1"), Type: "INT64"},
				{Key: "active", Value: true, Type: "BOOL"},
			},
			DirectionOutgoing, "",
		)
		assert.Contains(t, query, "n.id=1 and n.active=true")
	})

	t.Run("no properties omits the conjunction", func(t *testing.T) {
		query := buildExpansionQuery("g", "u", nil, nil, DirectionOutgoing, "")
		assert.Contains(t, query, "STRING(TO_JSON(n).identifier) = uid")
		assert.NotContains(t, query, "and STRING")
	})
}
