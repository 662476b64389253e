package schemas

import "encoding/json"

// -- Core Graph Models --
// These types represent the graph entities reconstructed from query results,
// in the exact shape the visualization layer consumes.

// FieldTypeJSON and FieldTypeArray are the only column type codes the
// conversion layer extracts graph entities from. Every other code passes
// through untouched.
const (
	FieldTypeJSON  = "JSON"
	FieldTypeArray = "ARRAY"
)

// FieldInfo describes a single column of a query result: its name and the
// backend type code ("JSON", "ARRAY", "STRING", "INT64", ...). Immutable once
// produced.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the columnar output of a single query execution.
//
// Data maps each field name to that column's values in row order. Fields and
// Rows preserve the backend's ordering. Schema carries the property-graph
// schema document when the query was graph-shaped and the lookup succeeded.
// Err captures any backend failure; it is data, never re-raised.
type QueryResult struct {
	Data   map[string][]any
	Fields []FieldInfo
	Rows   [][]any
	Schema json.RawMessage
	Err    error
}

// Node represents a node returned by (or synthesized for) a graph query.
type Node struct {
	Identifier       string         `json:"identifier"`
	Labels           []string       `json:"labels"`
	Properties       map[string]any `json:"properties"`
	KeyPropertyNames []string       `json:"key_property_names"`
	// Intermediate is true only for placeholder nodes synthesized because an
	// edge referenced them while the query never returned them.
	Intermediate bool `json:"intermediate"`
}

// Edge represents a relationship between two node identifiers.
type Edge struct {
	Identifier  string         `json:"identifier"`
	Labels      []string       `json:"labels"`
	Properties  map[string]any `json:"properties"`
	Source      string         `json:"source_node_identifier"`
	Destination string         `json:"destination_node_identifier"`
}

// IntermediateNode creates a placeholder node for an identifier that edges
// reference but the query response never contained.
func IntermediateNode(identifier string) Node {
	return Node{
		Identifier: identifier,
		Labels:     []string{"Intermediate"},
		Properties: map[string]any{
			"note": "This node represents a referenced entity that wasn't returned in the query results.",
		},
		KeyPropertyNames: []string{},
		Intermediate:     true,
	}
}

// NodeFromMap validates the shape of a decoded JSON object and builds a Node
// from it. The object must contain an "identifier" string, a "labels" list of
// strings and a "properties" object; anything else returns ok=false. Shape
// failures are expected in heterogeneous query output and are never errors.
func NodeFromMap(obj map[string]any) (Node, bool) {
	identifier, ok := obj["identifier"].(string)
	if !ok {
		return Node{}, false
	}
	labels, ok := stringList(obj["labels"])
	if !ok {
		return Node{}, false
	}
	properties, ok := obj["properties"].(map[string]any)
	if !ok {
		return Node{}, false
	}
	return Node{
		Identifier:       identifier,
		Labels:           labels,
		Properties:       properties,
		KeyPropertyNames: []string{},
	}, true
}

// EdgeFromMap validates the shape of a decoded JSON object and builds an Edge
// from it. On top of the node shape it requires "source_node_identifier" and
// "destination_node_identifier" strings.
func EdgeFromMap(obj map[string]any) (Edge, bool) {
	identifier, ok := obj["identifier"].(string)
	if !ok {
		return Edge{}, false
	}
	source, ok := obj["source_node_identifier"].(string)
	if !ok {
		return Edge{}, false
	}
	destination, ok := obj["destination_node_identifier"].(string)
	if !ok {
		return Edge{}, false
	}
	labels, ok := stringList(obj["labels"])
	if !ok {
		return Edge{}, false
	}
	properties, ok := obj["properties"].(map[string]any)
	if !ok {
		return Edge{}, false
	}
	return Edge{
		Identifier:  identifier,
		Labels:      labels,
		Properties:  properties,
		Source:      source,
		Destination: destination,
	}, true
}

func stringList(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
