package graphserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Direction selects which way a node expansion traverses.
type Direction string

const (
	DirectionIncoming Direction = "INCOMING"
	DirectionOutgoing Direction = "OUTGOING"
)

// propertyTypes is the fixed set of scalar kinds allowed in node property
// constraints. Comparison is case-insensitive; values are stored uppercased.
var propertyTypes = map[string]struct{}{
	"BOOL":      {},
	"BYTES":     {},
	"DATE":      {},
	"ENUM":      {},
	"INT64":     {},
	"NUMERIC":   {},
	"FLOAT32":   {},
	"FLOAT64":   {},
	"STRING":    {},
	"TIMESTAMP": {},
}

// nodeProperty is one validated equality constraint on the anchor node.
type nodeProperty struct {
	Key   string
	Value any
	Type  string
}

// validateNodeExpansionRequest checks a combined params+request document
// before any query is synthesized. Missing required fields are collected into
// a single error rather than reported one at a time.
func validateNodeExpansionRequest(data map[string]any) ([]nodeProperty, Direction, error) {
	required := []string{"project", "instance", "database", "graph", "uid", "node_labels", "direction"}
	var missing []string
	for _, field := range required {
		if value, ok := data[field]; !ok || value == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, "", fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	labels, ok := data["node_labels"].([]any)
	if !ok {
		return nil, "", errors.New("node_labels must be an array")
	}
	for _, label := range labels {
		if _, ok := label.(string); !ok {
			return nil, "", errors.New("each node label must be a string")
		}
	}

	rawProperties := []any{}
	if v, present := data["node_properties"]; present && v != nil {
		rawProperties, ok = v.([]any)
		if !ok {
			return nil, "", errors.New("node_properties must be an array")
		}
	}

	properties := make([]nodeProperty, 0, len(rawProperties))
	for idx, raw := range rawProperties {
		property, err := validateNodeProperty(idx, raw)
		if err != nil {
			return nil, "", err
		}
		properties = append(properties, property)
	}

	directionValue, _ := data["direction"].(string)
	direction := Direction(directionValue)
	if direction != DirectionIncoming && direction != DirectionOutgoing {
		return nil, "", fmt.Errorf("invalid direction: must be INCOMING or OUTGOING, got %q", data["direction"])
	}

	return properties, direction, nil
}

func validateNodeProperty(idx int, raw any) (nodeProperty, error) {
	property, ok := raw.(map[string]any)
	if !ok {
		return nodeProperty{}, fmt.Errorf("property at index %d must be an object", idx)
	}

	for _, field := range []string{"key", "value", "type"} {
		if _, present := property[field]; !present {
			return nodeProperty{}, fmt.Errorf("property at index %d is missing required fields (key, value, type)", idx)
		}
	}

	typeName, ok := property["type"].(string)
	if !ok {
		return nodeProperty{}, fmt.Errorf("property type at index %d must be a string", idx)
	}
	typeName = strings.ToUpper(typeName)
	if _, ok := propertyTypes[typeName]; !ok {
		return nodeProperty{}, fmt.Errorf("invalid property type in property at index %d: invalid property type: %s. Allowed types are: %s",
			idx, typeName, allowedPropertyTypes())
	}

	key, _ := property["key"].(string)
	value := property["value"]

	switch typeName {
	case "INT64", "NUMERIC":
		if !isIntegerValue(value) {
			return nodeProperty{}, fmt.Errorf("invalid property type in property at index %d: property %q value must be a number for type %s",
				idx, key, typeName)
		}
	case "FLOAT32", "FLOAT64":
		if !isFloatValue(value) {
			return nodeProperty{}, fmt.Errorf("invalid property type in property at index %d: property %q value must be a valid float for type %s",
				idx, key, typeName)
		}
	case "BOOL":
		if !isBoolValue(value) {
			return nodeProperty{}, fmt.Errorf("invalid property type in property at index %d: property %q value must be a boolean for type %s",
				idx, key, typeName)
		}
	}

	return nodeProperty{Key: key, Value: value, Type: typeName}, nil
}

func allowedPropertyTypes() string {
	names := make([]string, 0, len(propertyTypes))
	for name := range propertyTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// isIntegerValue accepts integers and digit-only strings. The digit-only rule
// rejects negative numbers and exponents in strings; that boundary behavior
// is kept as-is.
func isIntegerValue(value any) bool {
	switch v := value.(type) {
	case json.Number:
		_, err := v.Int64()
		return err == nil
	case string:
		if v == "" {
			return false
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isFloatValue(value any) bool {
	switch v := value.(type) {
	case json.Number:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

func isBoolValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case string:
		lower := strings.ToLower(v)
		return lower == "true" || lower == "false"
	default:
		return false
	}
}

// buildExpansionQuery synthesizes the two-stage graph query for a node
// expansion: stage 1 pins the anchor node by label filter, property equality
// and identifier equality; stage 2 traverses one hop in the requested
// direction and returns the edge and destination as structured values.
func buildExpansionQuery(graph, uid string, labels []string, properties []nodeProperty, direction Direction, edgeLabel string) string {
	edge := "e"
	if edgeLabel != "" {
		edge = "e:" + edgeLabel
	}

	pathPattern := fmt.Sprintf("(n)-[%s]->(d)", edge)
	if direction == DirectionIncoming {
		pathPattern = fmt.Sprintf("(n)<-[%s]-(d)", edge)
	}

	labelFilter := ""
	if len(labels) > 0 {
		labelFilter = ": " + strings.Join(labels, " & ")
	}

	conditions := make([]string, 0, len(properties))
	for _, property := range properties {
		conditions = append(conditions, fmt.Sprintf("n.%s=%s", property.Key, formatPropertyValue(property)))
	}
	conjunction := ""
	if len(conditions) > 0 {
		conjunction = "and"
	}

	return fmt.Sprintf(`
		GRAPH %s
		LET uid = "%s"
		MATCH (n%s)
		WHERE %s %s STRING(TO_JSON(n).identifier) = uid
		RETURN n

		NEXT

		MATCH %s
		RETURN TO_JSON(e) as e, TO_JSON(d) as d
		`,
		graph, uid, labelFilter, strings.Join(conditions, " and "), conjunction, pathPattern)
}

// formatPropertyValue renders a constraint value for embedding in the query
// text: numeric and boolean kinds are embedded unquoted, everything else is
// wrapped in a triple-quote string literal.
func formatPropertyValue(property nodeProperty) string {
	switch property.Type {
	case "INT64", "NUMERIC", "FLOAT32", "FLOAT64", "BOOL":
		return fmt.Sprintf("%v", property.Value)
	default:
		return fmt.Sprintf("'''%v'''", property.Value)
	}
}
