package schemas

import "context"

// GraphDatabase abstracts a backend that can execute a query string and
// return columnar results with field metadata and schema context.
//
// Implementations must never leak backend failures past this boundary: any
// execution error is captured in QueryResult.Err, with empty rows and fields
// unless partial metadata is available.
//
// limit, when positive, is bound as the @limit statement parameter.
// isTestQuery skips the schema catalog lookup for graph-shaped queries.
type GraphDatabase interface {
	ExecuteQuery(ctx context.Context, query string, limit int64, isTestQuery bool) QueryResult
}
