package query

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shogotsuneto/presto-driver/internal/engine"
	"github.com/shogotsuneto/presto-driver/internal/metrics"
	"github.com/shogotsuneto/presto-driver/internal/parser"
)

// Result is the materialized outcome of one statement
type Result struct {
	Query   string
	Rows    []map[string]interface{}
	Columns []engine.Column
}

// ColumnNames returns the names of the result columns in order
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Outcome pairs a statement with its result or error
type Outcome struct {
	Statement string
	Result    *Result
	Err       error
	Duration  time.Duration
}

// Collect executes a single statement and accumulates every delivered batch
// into one result. Rows are keyed by the last column list the engine reported.
// The first error from the engine fails the whole statement.
func Collect(ctx context.Context, client engine.Client, statement string) (*Result, error) {
	var columns []engine.Column
	var raw [][]interface{}

	err := client.Execute(ctx, engine.Request{
		Query: statement,
		Data: func(cols []engine.Column, rows [][]interface{}) error {
			columns = cols
			raw = append(raw, rows...)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0, len(raw))
	for i, values := range raw {
		if len(values) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values but %d columns were reported", i, len(values), len(columns))
		}

		row := make(map[string]interface{}, len(columns))
		for j, col := range columns {
			row[col.Name] = values[j]
		}
		rows = append(rows, row)
	}

	if columns == nil {
		columns = []engine.Column{}
	}

	return &Result{Query: statement, Rows: rows, Columns: columns}, nil
}

// Executor runs multi-statement submissions against one engine client
type Executor struct {
	connID string
}

// NewExecutor creates an executor that labels metrics with connID
func NewExecutor(connID string) *Executor {
	return &Executor{connID: connID}
}

// Execute splits query into statements and runs them sequentially in order.
// A failed statement does not stop the ones after it.
func (e *Executor) Execute(ctx context.Context, client engine.Client, query string) []Outcome {
	statements := parser.Split(query)
	outcomes := make([]Outcome, 0, len(statements))

	for _, stmt := range statements {
		outcomes = append(outcomes, e.run(ctx, client, stmt))
	}
	return outcomes
}

// ExecuteStatement runs one statement without splitting it
func (e *Executor) ExecuteStatement(ctx context.Context, client engine.Client, statement string) Outcome {
	return e.run(ctx, client, statement)
}

func (e *Executor) run(ctx context.Context, client engine.Client, stmt string) Outcome {
	start := time.Now()
	result, err := Collect(ctx, client, stmt)
	duration := time.Since(start)

	metrics.StatementDuration.WithLabelValues(e.connID).Observe(duration.Seconds())
	if err != nil {
		metrics.StatementsTotal.WithLabelValues(e.connID, metrics.OutcomeError).Inc()
		log.Printf("Statement failed on %s after %v: %v", e.connID, duration, err)
		return Outcome{Statement: stmt, Err: err, Duration: duration}
	}

	metrics.StatementsTotal.WithLabelValues(e.connID, metrics.OutcomeSuccess).Inc()
	metrics.RowsReturned.WithLabelValues(e.connID).Add(float64(len(result.Rows)))
	return Outcome{Statement: stmt, Result: result, Duration: duration}
}

// FlattenMessage turns an error into a single-line message
func FlattenMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(err.Error())
}
