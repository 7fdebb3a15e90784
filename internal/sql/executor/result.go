package executor

import "github.com/tuannm99/coldb/internal/record"

// Result is the generic query result returned to the caller.
type Result struct {
	Columns []string
	Rows    [][]any

	// For DML:
	AffectedRows int64
	// Ids of inserted rows, or of the matched rows of a single-table query.
	RowIDs []record.RowID

	// Access lists the access path chosen for each column/literal comparison.
	Access []string

	mutated bool
}
