// Package engine wraps the query engine client behind a callback-based
// execute contract: row batches are pushed to a data callback and the
// return value of Execute is the single completion signal.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/trinodb/trino-go-client/trino" // registers the "trino" database/sql driver
)

const (
	// EngineTrino is the only wire dialect the client library speaks
	EngineTrino = "trino"
	// EnginePresto is accepted for profiles written against PrestoSQL
	EnginePresto = "presto"

	DefaultBatchSize = 1000
	DefaultSource    = "sqltools"

	driverName = "trino"
)

// ErrUnsupportedEngine is returned for an engine identifier the client cannot speak
var ErrUnsupportedEngine = errors.New("unsupported engine")

// ErrPasswordRequiresSSL is returned for a password on a plain http connection.
// The trino client only sends basic auth over https.
var ErrPasswordRequiresSSL = errors.New("password authentication requires ssl")

// Column describes one result column as reported by the engine
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DataFunc receives one batch of positional rows together with the column
// list they belong to. Returning an error aborts the execution.
type DataFunc func(columns []Column, rows [][]any) error

// Request is a single statement submitted to the engine
type Request struct {
	Query string
	Data  DataFunc
}

// Client is the engine handle a connection owns
type Client interface {
	// Execute runs one statement, delivering rows to req.Data. The returned
	// error is the completion outcome.
	Execute(ctx context.Context, req Request) error

	// Close releases resources held by the client.
	Close() error
}

// Params are the connection parameters used to construct a Client
type Params struct {
	Host              string
	Port              int
	Catalog           string
	Schema            string
	User              string
	Password          string // enables basic auth when set
	Engine            string
	Source            string
	SSL               bool
	AccessToken       string
	SessionProperties map[string]string
	BatchSize         int
}

// SQLClient executes statements through a database/sql handle
type SQLClient struct {
	db        *sql.DB
	batchSize int
}

// New creates a trino-backed client from the given parameters. No network
// traffic happens until the first Execute.
func New(p Params) (*SQLClient, error) {
	dsn, err := FormatDSN(p)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	return NewSQLClient(db, p.BatchSize), nil
}

// NewSQLClient wraps an existing database/sql handle
func NewSQLClient(db *sql.DB, batchSize int) *SQLClient {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLClient{db: db, batchSize: batchSize}
}

// FormatDSN builds the trino driver DSN for the given parameters
func FormatDSN(p Params) (string, error) {
	switch strings.ToLower(p.Engine) {
	case "", EngineTrino, EnginePresto:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, p.Engine)
	}
	if p.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if p.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if p.Password != "" && !p.SSL {
		return "", ErrPasswordRequiresSSL
	}

	scheme := "http"
	if p.SSL {
		scheme = "https"
	}

	server := &url.URL{Scheme: scheme, Host: p.Host}
	if p.Port > 0 {
		server.Host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	if p.Password != "" {
		server.User = url.UserPassword(p.User, p.Password)
	} else {
		server.User = url.User(p.User)
	}

	source := p.Source
	if source == "" {
		source = DefaultSource
	}

	cfg := &trino.Config{
		ServerURI:         server.String(),
		Source:            source,
		Catalog:           p.Catalog,
		Schema:            p.Schema,
		SessionProperties: p.SessionProperties,
		AccessToken:       p.AccessToken,
	}

	dsn, err := cfg.FormatDSN()
	if err != nil {
		return "", fmt.Errorf("failed to format %s DSN: %w", driverName, err)
	}
	return dsn, nil
}

// Execute runs the statement and streams its rows to req.Data in batches
func (c *SQLClient) Execute(ctx context.Context, req Request) error {
	rows, err := c.db.QueryContext(ctx, req.Query)
	if err != nil {
		return err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{Name: ct.Name(), Type: strings.ToLower(ct.DatabaseTypeName())}
	}

	deliver := func(batch [][]any) error {
		if req.Data == nil {
			return nil
		}
		return req.Data(columns, batch)
	}

	delivered := false
	batch := make([][]any, 0, c.batchSize)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		// []byte is not JSON friendly
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		batch = append(batch, values)
		if len(batch) == c.batchSize {
			if err := deliver(batch); err != nil {
				return err
			}
			delivered = true
			batch = make([][]any, 0, c.batchSize)
		}
	}

	if err := rows.Err(); err != nil {
		return err
	}

	if len(batch) > 0 || !delivered {
		return deliver(batch)
	}
	return nil
}

// Close closes the underlying database handle
func (c *SQLClient) Close() error {
	return c.db.Close()
}
