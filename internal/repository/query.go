package repository

import (
	"context"
	"fmt"
	"time"

	"nflstats/internal/metrics"
)

// QueryResult is a generic tabular result
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// QueryReadOnly runs caller-supplied SQL on the query_only handle. SQLite
// itself refuses any write on that connection; statement vetting happens in
// the caller. At most maxRows rows are returned.
func (d *Database) QueryReadOnly(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	start := time.Now()

	rows, err := d.readOnly.QueryContext(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("raw", "any", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	metrics.RecordDBQuery("raw", "any", "success", time.Since(start).Seconds())
	return result, nil
}
