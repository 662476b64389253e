// Package conversion turns heterogeneous per-column JSON values from a query
// result into deduplicated, referentially complete node and edge collections.
package conversion

import (
	"encoding/json"

	"github.com/spangraph/spangraph/api/schemas"
	"github.com/spangraph/spangraph/internal/schema"
)

// NodesAndEdges extracts graph entities from columnar query data.
//
// Only columns typed JSON or ARRAY are inspected; everything else is skipped.
// Extraction is best-effort: malformed JSON text, objects without a "kind"
// discriminator and objects failing shape validation are dropped silently.
// The first node or edge seen for an identifier wins; later duplicates are
// discarded, not merged. After all columns are processed, edges referencing
// identifiers that never appeared as nodes get exactly one placeholder node
// per missing identifier, so every edge endpoint resolves.
//
// The function is pure: the same data, fields and schema document always
// yield the same collections.
func NodesAndEdges(data map[string][]any, fields []schemas.FieldInfo, schemaJSON json.RawMessage) ([]schemas.Node, []schemas.Edge) {
	manager := schema.NewManager(schemaJSON)

	nodes := make([]schemas.Node, 0)
	edges := make([]schemas.Edge, 0)
	nodeIdentifiers := make(map[string]struct{})
	edgeIdentifiers := make(map[string]struct{})

	for _, field := range fields {
		if field.Type != schemas.FieldTypeJSON && field.Type != schemas.FieldTypeArray {
			continue
		}
		for _, value := range data[field.Name] {
			for _, candidate := range flatten(value) {
				obj, ok := candidate.(map[string]any)
				if !ok {
					continue
				}
				kind, _ := obj["kind"].(string)
				switch kind {
				case "node":
					node, ok := schemas.NodeFromMap(obj)
					if !ok {
						continue
					}
					if _, seen := nodeIdentifiers[node.Identifier]; seen {
						continue
					}
					node.KeyPropertyNames = manager.KeyPropertyNames(node)
					nodes = append(nodes, node)
					nodeIdentifiers[node.Identifier] = struct{}{}
				case "edge":
					edge, ok := schemas.EdgeFromMap(obj)
					if !ok {
						continue
					}
					if _, seen := edgeIdentifiers[edge.Identifier]; seen {
						continue
					}
					edges = append(edges, edge)
					edgeIdentifiers[edge.Identifier] = struct{}{}
				}
			}
		}
	}

	// Placeholders for endpoints the query referenced but never returned.
	for _, edge := range edges {
		for _, identifier := range []string{edge.Source, edge.Destination} {
			if _, seen := nodeIdentifiers[identifier]; seen {
				continue
			}
			nodes = append(nodes, schemas.IntermediateNode(identifier))
			nodeIdentifiers[identifier] = struct{}{}
		}
	}

	return nodes, edges
}

// flatten turns a raw column value into candidate objects: a list contributes
// its elements, a single object contributes itself, and JSON text is parsed
// (dropped on parse failure). Anything else contributes nothing.
func flatten(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil
		}
		return []any{decoded}
	default:
		return nil
	}
}
