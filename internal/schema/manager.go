// Package schema resolves, per node instance, which properties constitute its
// natural key, given a property-graph schema document fetched from the
// backend's catalog.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/spangraph/spangraph/api/schemas"
)

// PropertyDefinition maps a declared property name to the underlying column
// expression it derives from.
type PropertyDefinition struct {
	PropertyDeclarationName string `json:"propertyDeclarationName"`
	ValueExpressionSQL      string `json:"valueExpressionSql"`
}

// NodeTable is the declarative description of one node table in the graph
// schema.
type NodeTable struct {
	LabelNames          []string             `json:"labelNames"`
	KeyColumns          []string             `json:"keyColumns"`
	PropertyDefinitions []PropertyDefinition `json:"propertyDefinitions"`
	// DynamicLabelExpr, when non-empty, marks the table's labels as not fixed
	// at schema time.
	DynamicLabelExpr string `json:"dynamicLabelExpr"`
}

// Document is the subset of the property-graph schema document this package
// consumes.
type Document struct {
	NodeTables []NodeTable `json:"nodeTables"`
}

// Manager derives key-property lookups from a schema document. It is fully
// constructible from an in-memory document; no backend access.
type Manager struct {
	doc Document

	// labelToKeyProperties maps a single label name to the declared property
	// names behind that table's key columns. Multi-label tables are excluded
	// here and matched at lookup time by full label-set comparison.
	labelToKeyProperties map[string][]string
	uniqueLabels         map[string]struct{}
	dynamic              bool
}

// NewManager builds a Manager from a raw schema document. A nil, empty or
// unparseable document degrades to "no key properties known"; schema absence
// is never an error.
func NewManager(raw json.RawMessage) *Manager {
	var doc Document
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &doc)
	}

	m := &Manager{
		doc:                  doc,
		labelToKeyProperties: make(map[string][]string),
		uniqueLabels:         make(map[string]struct{}),
	}

	labelCount := make(map[string]int)
	for _, table := range doc.NodeTables {
		if table.DynamicLabelExpr != "" {
			m.dynamic = true
		}
		if len(table.LabelNames) != 1 {
			continue
		}
		label := table.LabelNames[0]
		labelCount[label]++
		m.labelToKeyProperties[label] = keyPropertyNamesForTable(table)
	}
	for label, count := range labelCount {
		if count == 1 {
			m.uniqueLabels[label] = struct{}{}
		}
	}
	return m
}

// keyPropertyNamesForTable resolves each key column to the property declared
// over it. Key columns with no matching property definition are skipped.
func keyPropertyNamesForTable(table NodeTable) []string {
	names := make([]string, 0, len(table.KeyColumns))
	for _, keyColumn := range table.KeyColumns {
		for _, prop := range table.PropertyDefinitions {
			if prop.ValueExpressionSQL == keyColumn {
				names = append(names, prop.PropertyDeclarationName)
				break
			}
		}
	}
	return names
}

// KeyPropertiesForLabel returns the declared key property names for a label
// backed by exactly one single-label node table.
func (m *Manager) KeyPropertiesForLabel(label string) []string {
	return m.labelToKeyProperties[label]
}

// IsUniqueNodeLabel reports whether the label identifies exactly one
// single-label node table, i.e. whether the label alone identifies a type.
func (m *Manager) IsUniqueNodeLabel(label string) bool {
	_, ok := m.uniqueLabels[label]
	return ok
}

// HasDynamicLabels reports whether any node table declares a dynamic-label
// expression, meaning query-time label sets may be supersets of a table's
// declared labels.
func (m *Manager) HasDynamicLabels() bool {
	return m.dynamic
}

// KeyPropertyNames resolves the key columns for a node instance.
//
// Nodes with no properties or no labels resolve to nothing. With dynamic
// labels in play, the first table whose declared labels are a subset of the
// node's labels wins; this is best-effort and depends on schema declaration
// order. Otherwise a table matches only when its label set equals the node's
// label set (order-independent) and every key column is present among the
// node's property keys.
func (m *Manager) KeyPropertyNames(node schemas.Node) []string {
	if len(node.Properties) == 0 || len(node.Labels) == 0 {
		return []string{}
	}

	nodeLabels := sortedCopy(node.Labels)
	nodeLabelSet := toSet(node.Labels)

	for _, table := range m.doc.NodeTables {
		if m.dynamic && isSubset(table.LabelNames, nodeLabelSet) {
			return table.KeyColumns
		}

		if len(table.LabelNames) != len(nodeLabels) {
			continue
		}
		if !equalSlices(sortedCopy(table.LabelNames), nodeLabels) {
			continue
		}
		if !hasAllKeys(node.Properties, table.KeyColumns) {
			continue
		}
		return table.KeyColumns
	}
	return []string{}
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func isSubset(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasAllKeys(properties map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := properties[key]; !ok {
			return false
		}
	}
	return true
}
