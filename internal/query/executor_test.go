package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/shogotsuneto/presto-driver/internal/engine"
)

type batch struct {
	columns []engine.Column
	rows    [][]interface{}
}

// scriptedClient replays batches per statement, then returns the scripted error
type scriptedClient struct {
	batches  map[string][]batch
	errs     map[string]error
	executed []string
}

func (c *scriptedClient) Execute(ctx context.Context, req engine.Request) error {
	c.executed = append(c.executed, req.Query)
	for _, b := range c.batches[req.Query] {
		if err := req.Data(b.columns, b.rows); err != nil {
			return err
		}
	}
	if err, ok := c.errs[req.Query]; ok {
		return err
	}
	return nil
}

func (c *scriptedClient) Close() error { return nil }

var userColumns = []engine.Column{{Name: "id", Type: "bigint"}, {Name: "name", Type: "varchar"}}

func TestCollect(t *testing.T) {
	client := &scriptedClient{
		batches: map[string][]batch{
			"SELECT id, name FROM users": {
				{columns: userColumns, rows: [][]interface{}{{int64(1), "alice"}}},
				{columns: userColumns, rows: [][]interface{}{{int64(2), "bob"}, {int64(3), nil}}},
			},
		},
	}

	result, err := Collect(context.Background(), client, "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if result.Query != "SELECT id, name FROM users" {
		t.Errorf("Expected original query text, got %q", result.Query)
	}
	if !reflect.DeepEqual(result.ColumnNames(), []string{"id", "name"}) {
		t.Errorf("Unexpected column names: %v", result.ColumnNames())
	}

	expected := []map[string]interface{}{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": "bob"},
		{"id": int64(3), "name": nil},
	}
	if !reflect.DeepEqual(result.Rows, expected) {
		t.Errorf("Expected rows %v, got %v", expected, result.Rows)
	}

	for i, row := range result.Rows {
		if len(row) != len(result.Columns) {
			t.Errorf("Row %d has %d keys, expected %d", i, len(row), len(result.Columns))
		}
		for _, name := range result.ColumnNames() {
			if _, ok := row[name]; !ok {
				t.Errorf("Row %d is missing column %s", i, name)
			}
		}
	}
}

func TestCollect_UsesLastSeenColumns(t *testing.T) {
	renamed := []engine.Column{{Name: "user_id", Type: "bigint"}, {Name: "user_name", Type: "varchar"}}
	client := &scriptedClient{
		batches: map[string][]batch{
			"q": {
				{columns: userColumns, rows: [][]interface{}{{int64(1), "alice"}}},
				{columns: renamed, rows: [][]interface{}{{int64(2), "bob"}}},
			},
		},
	}

	result, err := Collect(context.Background(), client, "q")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	for _, row := range result.Rows {
		if _, ok := row["user_id"]; !ok {
			t.Errorf("Expected rows keyed by the last column list, got %v", row)
		}
	}
}

func TestCollect_EmptyResult(t *testing.T) {
	client := &scriptedClient{
		batches: map[string][]batch{
			"SELECT * FROM empty": {{columns: userColumns, rows: [][]interface{}{}}},
		},
	}

	result, err := Collect(context.Background(), client, "SELECT * FROM empty")
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Rows == nil || len(result.Rows) != 0 {
		t.Errorf("Expected empty non-nil rows, got %v", result.Rows)
	}
	if len(result.Columns) != 2 {
		t.Errorf("Expected columns to be reported, got %v", result.Columns)
	}
}

func TestCollect_Errors(t *testing.T) {
	completionErr := errors.New("Query failed: line 1:8\nColumn 'x' cannot be resolved")

	t.Run("CompletionError", func(t *testing.T) {
		client := &scriptedClient{
			batches: map[string][]batch{"bad": {{columns: userColumns, rows: [][]interface{}{{int64(1), "a"}}}}},
			errs:    map[string]error{"bad": completionErr},
		}
		result, err := Collect(context.Background(), client, "bad")
		if !errors.Is(err, completionErr) {
			t.Errorf("Expected completion error, got %v", err)
		}
		if result != nil {
			t.Errorf("Expected no partial result, got %v", result)
		}
	})

	t.Run("RowWidthMismatch", func(t *testing.T) {
		client := &scriptedClient{
			batches: map[string][]batch{"short": {{columns: userColumns, rows: [][]interface{}{{int64(1)}}}}},
		}
		_, err := Collect(context.Background(), client, "short")
		if err == nil || !strings.Contains(err.Error(), "1 values but 2 columns") {
			t.Errorf("Expected width mismatch error, got %v", err)
		}
	})
}

func TestExecutor_Execute(t *testing.T) {
	failure := errors.New("Table 'hive.default.missing' does not exist")
	client := &scriptedClient{
		batches: map[string][]batch{
			"SELECT 1 AS a": {{columns: []engine.Column{{Name: "a", Type: "integer"}}, rows: [][]interface{}{{int32(1)}}}},
			"SELECT ';' AS x": {{columns: []engine.Column{{Name: "x", Type: "varchar(1)"}}, rows: [][]interface{}{{";"}}}},
		},
		errs: map[string]error{"SELECT * FROM missing": failure},
	}

	executor := NewExecutor("test")
	outcomes := executor.Execute(context.Background(), client, "SELECT 1 AS a; SELECT * FROM missing; SELECT ';' AS x;")

	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}

	expectedOrder := []string{"SELECT 1 AS a", "SELECT * FROM missing", "SELECT ';' AS x"}
	if !reflect.DeepEqual(client.executed, expectedOrder) {
		t.Errorf("Expected statements executed in order %v, got %v", expectedOrder, client.executed)
	}

	if outcomes[0].Err != nil || len(outcomes[0].Result.Rows) != 1 {
		t.Errorf("Expected first statement to succeed with one row, got %+v", outcomes[0])
	}
	if !errors.Is(outcomes[1].Err, failure) || outcomes[1].Result != nil {
		t.Errorf("Expected second statement to fail, got %+v", outcomes[1])
	}
	if outcomes[2].Err != nil || outcomes[2].Result.Rows[0]["x"] != ";" {
		t.Errorf("Expected third statement to run after the failure, got %+v", outcomes[2])
	}
}

func TestExecutor_Execute_NoStatements(t *testing.T) {
	client := &scriptedClient{}
	outcomes := NewExecutor("test").Execute(context.Background(), client, "  ;  ")
	if len(outcomes) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outcomes))
	}
	if len(client.executed) != 0 {
		t.Errorf("Expected nothing executed, got %v", client.executed)
	}
}

func TestFlattenMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "single line", err: errors.New("boom"), expected: "boom"},
		{name: "newlines", err: errors.New("line 1:8\nColumn 'x'\ncannot be resolved"), expected: "line 1:8 Column 'x' cannot be resolved"},
		{name: "crlf", err: errors.New("a\r\nb\rc"), expected: "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenMessage(tt.err)
			if got != tt.expected {
				t.Errorf("FlattenMessage() = %q, expected %q", got, tt.expected)
			}
			if strings.ContainsAny(got, "\r\n") {
				t.Errorf("FlattenMessage() left a line break in %q", got)
			}
		})
	}
}

func TestClientError(t *testing.T) {
	err := NewClientErrorf("query", "must not be empty")
	if err.Error() != "query: must not be empty" {
		t.Errorf("Unexpected message: %q", err.Error())
	}

	wrapped := errors.Join(errors.New("context"), err)
	if !IsClientError(wrapped) {
		t.Errorf("Expected wrapped client error to be detected")
	}
	if IsClientError(errors.New("plain")) {
		t.Errorf("Expected plain error not to be a client error")
	}
}
