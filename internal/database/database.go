// Package database provides the adapters that execute queries against a
// property-graph backend and return columnar results with field metadata and
// schema context. Two implementations exist: a live Cloud Spanner adapter and
// an offline mock backed by embedded fixtures. Both produce structurally
// identical output.
package database

import (
	"encoding/json"
	"strings"

	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spangraph/spangraph/api/schemas"
)

// extractGraphName pulls the graph name out of a graph-shaped query: the
// first token must be GRAPH (any case) and at least three tokens must be
// present. Anything else is treated as a non-graph query.
func extractGraphName(query string) (string, bool) {
	words := strings.Fields(query)
	if len(words) < 3 {
		return "", false
	}
	if !strings.EqualFold(words[0], "GRAPH") {
		return "", false
	}
	return words[1], true
}

// fieldInfoList converts result-set metadata into field descriptors. Absent
// metadata yields no fields, which in turn yields an empty data mapping.
func fieldInfoList(md *sppb.ResultSetMetadata) []schemas.FieldInfo {
	rowType := md.GetRowType()
	if rowType == nil {
		return nil
	}
	fields := make([]schemas.FieldInfo, 0, len(rowType.GetFields()))
	for _, f := range rowType.GetFields() {
		fields = append(fields, schemas.FieldInfo{
			Name: f.GetName(),
			Type: f.GetType().GetCode().String(),
		})
	}
	return fields
}

// decodeColumnValue decodes one raw column value according to its declared
// type: JSON text becomes a native structure, ARRAY<JSON> becomes a list of
// native structures, and every other type passes through unchanged.
func decodeColumnValue(t *sppb.Type, v *structpb.Value) any {
	switch {
	case t.GetCode() == sppb.TypeCode_JSON:
		return decodeJSONValue(v)
	case t.GetCode() == sppb.TypeCode_ARRAY && t.GetArrayElementType().GetCode() == sppb.TypeCode_JSON:
		list := v.GetListValue()
		if list == nil {
			return v.AsInterface()
		}
		out := make([]any, 0, len(list.GetValues()))
		for _, elem := range list.GetValues() {
			out = append(out, decodeJSONValue(elem))
		}
		return out
	default:
		return v.AsInterface()
	}
}

// decodeJSONValue parses the wire representation of a JSON column value. The
// backend transmits JSON as text; undecodable text is passed through as-is so
// downstream best-effort extraction can drop it.
func decodeJSONValue(v *structpb.Value) any {
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return v.AsInterface()
	}
	var decoded any
	if err := json.Unmarshal([]byte(sv.StringValue), &decoded); err != nil {
		return sv.StringValue
	}
	return decoded
}
