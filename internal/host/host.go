// Package host defines the shapes the SQL-tooling host exchanges with a
// connection driver: explorer tree items, result records and completions.
package host

import (
	"context"
	"time"
)

// ContextValue tags the kind of a node in the host's explorer tree
type ContextValue string

const (
	ContextConnection          ContextValue = "connection"
	ContextConnectedConnection ContextValue = "connectedConnection"
	ContextSchema              ContextValue = "connection.schema"
	ContextResourceGroup       ContextValue = "connection.resource_group"
	ContextTable               ContextValue = "connection.table"
	ContextView                ContextValue = "connection.view"
	ContextColumn              ContextValue = "connection.column"
	ContextNoChild             ContextValue = "NO_CHILD"
)

// Item represents a node in the explorer tree or a search hit
type Item struct {
	Label      string       `json:"label"`
	Type       ContextValue `json:"type"`
	Database   string       `json:"database,omitempty"` // engine catalog
	Schema     string       `json:"schema,omitempty"`
	Table      string       `json:"table,omitempty"`
	ChildType  ContextValue `json:"childType,omitempty"`
	DataType   string       `json:"dataType,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	IconID     string       `json:"iconId,omitempty"`
	IsNullable bool         `json:"isNullable,omitempty"`
	IsView     bool         `json:"isView,omitempty"`
}

// Message is a human-readable status line attached to a result
type Message struct {
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
}

// Result is the record the host renders for one executed statement
type Result struct {
	ResultID  string           `json:"resultId"`
	ConnID    string           `json:"connId"`
	RequestID string           `json:"requestId"`
	Query     string           `json:"query"`
	Cols      []string         `json:"cols"`
	Results   []map[string]any `json:"results"`
	Messages  []Message        `json:"messages"`
	Error     bool             `json:"error,omitempty"`
	RawError  error            `json:"-"`
	Page      int              `json:"page,omitempty"`
	PageSize  int              `json:"pageSize,omitempty"`
	Total     int64            `json:"total,omitempty"`
}

// CompletionItem is a static completion entry (keyword, function, ...)
type CompletionItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// QueryOptions carries per-request metadata for Query
type QueryOptions struct {
	RequestID string
}

// SearchParams holds the caller-supplied filters of a search request
type SearchParams struct {
	Tables []Item `json:"tables,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Driver is the lifecycle contract the host expects from a connection driver
type Driver interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Query(ctx context.Context, query string, opts QueryOptions) ([]Result, error)
	TestConnection(ctx context.Context) error
	GetChildrenForItem(ctx context.Context, item Item, parent *Item) ([]Item, error)
	SearchItems(ctx context.Context, itemType ContextValue, search string, params SearchParams) ([]Item, error)
	GetStaticCompletions(ctx context.Context) (map[string]CompletionItem, error)
}
