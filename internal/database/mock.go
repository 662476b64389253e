package database

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spangraph/spangraph/api/schemas"
)

// DefaultMockRowLimit is how many rows the mock adapter returns when no limit
// is configured.
const DefaultMockRowLimit = 5

//go:embed fixtures/graph_mock_data.csv
var mockGraphCSV []byte

//go:embed fixtures/graph_mock_schema.json
var mockSchemaJSON []byte

// MockDatabase is the offline adapter. Its backend is a fixed pair of
// embedded fixtures: a schema document and a CSV row source whose cells are
// JSON text. It ignores the input query entirely and truncates output to its
// row limit, producing results structurally identical to the live adapter.
type MockDatabase struct {
	rowLimit int64
	log      *zap.Logger
}

var _ schemas.GraphDatabase = (*MockDatabase)(nil)

// NewMockDatabase creates a mock adapter with the given row limit; zero or
// negative limits fall back to DefaultMockRowLimit.
func NewMockDatabase(rowLimit int64, logger *zap.Logger) *MockDatabase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rowLimit <= 0 {
		rowLimit = DefaultMockRowLimit
	}
	return &MockDatabase{rowLimit: rowLimit, log: logger.Named("MockDatabase")}
}

// ExecuteQuery loads the embedded fixtures and shapes them like a live query
// result. The query text and isTestQuery flag are ignored; a positive limit
// overrides the configured one.
func (m *MockDatabase) ExecuteQuery(_ context.Context, _ string, limit int64, _ bool) schemas.QueryResult {
	if limit <= 0 {
		limit = m.rowLimit
	}

	fields, rows, err := parseMockFixture(mockGraphCSV)
	if err != nil {
		m.log.Error("mock fixture is unreadable", zap.Error(err))
		return schemas.QueryResult{
			Data:   map[string][]any{},
			Rows:   [][]any{},
			Schema: json.RawMessage(mockSchemaJSON),
			Err:    err,
		}
	}

	data := make(map[string][]any, len(fields))
	for _, field := range fields {
		data[field.Name] = []any{}
	}

	if len(fields) == 0 {
		return schemas.QueryResult{Data: data, Fields: fields, Rows: rows, Schema: json.RawMessage(mockSchemaJSON)}
	}

	for i, row := range rows {
		if int64(i) >= limit {
			break
		}
		for j, field := range fields {
			if j >= len(row) {
				break
			}
			data[field.Name] = append(data[field.Name], row[j])
		}
	}

	return schemas.QueryResult{
		Data:   data,
		Fields: fields,
		Rows:   rows,
		Schema: json.RawMessage(mockSchemaJSON),
	}
}

// parseMockFixture reads the fixture CSV: the header row names the fields
// (all typed JSON), and every cell below it is JSON text. Cells that fail to
// parse are skipped, mirroring the best-effort conversion contract.
func parseMockFixture(raw []byte) ([]schemas.FieldInfo, [][]any, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse mock fixture csv: %w", err)
	}
	if len(records) == 0 {
		return nil, [][]any{}, nil
	}

	fields := make([]schemas.FieldInfo, 0, len(records[0]))
	for _, header := range records[0] {
		fields = append(fields, schemas.FieldInfo{Name: header, Type: schemas.FieldTypeJSON})
	}

	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		parsed := make([]any, 0, len(record))
		for _, cell := range record {
			var value any
			if err := json.Unmarshal([]byte(cell), &value); err != nil {
				continue
			}
			parsed = append(parsed, value)
		}
		rows = append(rows, parsed)
	}
	return fields, rows, nil
}
