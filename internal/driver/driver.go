// Package driver implements the host's connection driver contract on top of
// a single engine connection.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shogotsuneto/presto-driver/internal/db"
	"github.com/shogotsuneto/presto-driver/internal/host"
	"github.com/shogotsuneto/presto-driver/internal/query"
)

const testQuery = "SELECT 1"

var _ host.Driver = (*Driver)(nil)

// Driver translates host requests into engine statements for one connection
type Driver struct {
	conn     *db.Connection
	executor *query.Executor
	now      func() time.Time
}

// New creates a driver bound to conn
func New(conn *db.Connection) *Driver {
	return &Driver{
		conn:     conn,
		executor: query.NewExecutor(conn.ID()),
		now:      time.Now,
	}
}

// Connection returns the wrapped connection
func (d *Driver) Connection() *db.Connection {
	return d.conn
}

// Open opens the engine connection if it is not open yet
func (d *Driver) Open(ctx context.Context) error {
	_, err := d.conn.Open(ctx)
	return err
}

// Close releases the engine connection
func (d *Driver) Close(ctx context.Context) error {
	return d.conn.Close(ctx)
}

// Query runs every statement of q in order and returns one result per
// statement. Statement failures are reported inside the results; the
// returned error is only set when the connection cannot be opened.
func (d *Driver) Query(ctx context.Context, q string, opts host.QueryOptions) ([]host.Result, error) {
	client, err := d.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	outcomes := d.executor.Execute(ctx, client, q)
	results := make([]host.Result, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, d.toResult(o, requestID))
	}
	return results, nil
}

func (d *Driver) toResult(o query.Outcome, requestID string) host.Result {
	res := host.Result{
		ResultID:  uuid.NewString(),
		ConnID:    d.conn.ID(),
		RequestID: requestID,
		Query:     o.Statement,
	}

	if o.Err != nil {
		res.Cols = []string{}
		res.Results = []map[string]any{}
		res.Error = true
		res.RawError = o.Err
		res.Messages = []host.Message{{Date: d.now(), Message: query.FlattenMessage(o.Err)}}
		return res
	}

	res.Cols = o.Result.ColumnNames()
	res.Results = o.Result.Rows
	res.Messages = []host.Message{{
		Date:    d.now(),
		Message: fmt.Sprintf("Successfully executed. %d rows were affected.", len(o.Result.Rows)),
	}}
	return res
}

// TestConnection opens the connection and runs a trivial statement. The
// messages of every failed result are joined into the returned error.
func (d *Driver) TestConnection(ctx context.Context) error {
	results, err := d.Query(ctx, testQuery, host.QueryOptions{})
	if err != nil {
		d.conn.MarkHealthy(false)
		return err
	}

	var errs []error
	for _, r := range results {
		if r.Error {
			errs = append(errs, errors.New(r.Messages[0].Message))
		}
	}
	if len(errs) > 0 {
		d.conn.MarkHealthy(false)
		log.Printf("Connection test failed for %s", d.conn.ID())
		return fmt.Errorf("connection test failed: %w", errors.Join(errs...))
	}

	d.conn.MarkHealthy(true)
	return nil
}

// GetStaticCompletions returns the static completion set, which is empty
func (d *Driver) GetStaticCompletions(ctx context.Context) (map[string]host.CompletionItem, error) {
	return map[string]host.CompletionItem{}, nil
}
