package graphserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spangraph/spangraph/api/schemas"
	"github.com/spangraph/spangraph/internal/conversion"
)

// schemaAvailableNote prefixes query errors when a schema document was
// recovered despite the failure.
const schemaAvailableNote = "We've detected an error in your query. To help you troubleshoot, " +
	"the graph schema's layout is shown above.\n\n"

// connectionParams identifies the backend a request targets. It arrives as a
// JSON string under the "params" key of every write request.
type connectionParams struct {
	Project  string `json:"project"`
	Instance string `json:"instance"`
	Database string `json:"database"`
	Graph    string `json:"graph"`
	Mock     bool   `json:"mock"`
}

// queryResponse is the successful payload of a query or expansion call.
type queryResponse struct {
	Nodes       []schemas.Node   `json:"nodes"`
	Edges       []schemas.Edge   `json:"edges"`
	Schema      json.RawMessage  `json:"schema"`
	Rows        [][]any          `json:"rows"`
	QueryResult map[string][]any `json:"query_result"`
}

// queryEnvelope is the uniform response envelope: a response, an error, or a
// response accompanied by an error note.
type queryEnvelope struct {
	Response *queryResponse `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type queryRequest struct {
	Params string `json:"params"`
	Query  string `json:"query"`
}

type expansionRequest struct {
	Params  string         `json:"params"`
	Request map[string]any `json:"request"`
}

func (s *Server) handleGetPing(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"message": "pong"})
}

func (s *Server) handlePostPing(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := decodeJSONBody(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"your_request": body})
}

func (s *Server) handlePostQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeJSONBody(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}

	var params connectionParams
	if err := json.Unmarshal([]byte(body.Params), &params); err != nil {
		s.writeError(w, fmt.Errorf("invalid connection params: %w", err))
		return
	}

	s.writeJSON(w, s.executeQuery(r.Context(), params, body.Query))
}

func (s *Server) handlePostNodeExpansion(w http.ResponseWriter, r *http.Request) {
	var body expansionRequest
	if err := decodeJSONBody(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}

	var params map[string]any
	if err := decodeJSONBody(bytes.NewReader([]byte(body.Params)), &params); err != nil {
		s.writeError(w, fmt.Errorf("invalid connection params: %w", err))
		return
	}

	// Connection parameters and node details are validated as one combined
	// document; the request fields win on overlap.
	merged := make(map[string]any, len(params)+len(body.Request))
	for k, v := range params {
		merged[k] = v
	}
	for k, v := range body.Request {
		merged[k] = v
	}

	properties, direction, err := validateNodeExpansionRequest(merged)
	if err != nil {
		s.writeError(w, err)
		return
	}

	query := buildExpansionQuery(
		stringField(merged, "graph"),
		stringField(merged, "uid"),
		stringSliceField(merged, "node_labels"),
		properties,
		direction,
		stringField(merged, "edge_label"),
	)

	// Expansion always runs against the live adapter, never the mock.
	target := connectionParams{
		Project:  stringField(merged, "project"),
		Instance: stringField(merged, "instance"),
		Database: stringField(merged, "database"),
		Graph:    stringField(merged, "graph"),
	}
	s.writeJSON(w, s.executeQuery(r.Context(), target, query))
}

// executeQuery looks up the adapter, runs the query, and shapes the uniform
// envelope. Backend failures with no rows yield the empty graph plus an error
// note; anything unexpected collapses to a bare error envelope.
func (s *Server) executeQuery(ctx context.Context, params connectionParams, query string) queryEnvelope {
	adapter, err := s.cache.Get(ctx, params)
	if err != nil {
		return queryEnvelope{Error: err.Error()}
	}

	start := time.Now()
	result := adapter.ExecuteQuery(ctx, query, 0, false)
	s.metrics.queryDuration.Observe(time.Since(start).Seconds())

	if len(result.Rows) == 0 && result.Err != nil {
		s.metrics.queryErrors.Inc()
		s.log.Warn("query failed", zap.Error(result.Err))

		message := fmt.Sprintf("Query error: \n%s", result.Err)
		if len(result.Schema) > 0 {
			message = schemaAvailableNote + message
		}
		return queryEnvelope{
			Response: &queryResponse{
				Nodes:       []schemas.Node{},
				Edges:       []schemas.Edge{},
				Schema:      result.Schema,
				Rows:        [][]any{},
				QueryResult: result.Data,
			},
			Error: message,
		}
	}

	nodes, edges := conversion.NodesAndEdges(result.Data, result.Fields, result.Schema)
	return queryEnvelope{
		Response: &queryResponse{
			Nodes:       nodes,
			Edges:       edges,
			Schema:      result.Schema,
			Rows:        result.Rows,
			QueryResult: result.Data,
		},
	}
}

// decodeJSONBody decodes a request body with UseNumber so numeric property
// constraints keep their exact textual form.
func decodeJSONBody(r io.Reader, into any) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSON serializes a payload with the headers the visualization client
// expects. Responses are always HTTP 200; failures travel in the payload.
func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Methods", "GET,PUT,POST,DELETE,OPTIONS")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, queryEnvelope{Error: err.Error()})
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func stringSliceField(m map[string]any, key string) []string {
	raw, _ := m[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
