package driver

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shogotsuneto/presto-driver/internal/config"
	"github.com/shogotsuneto/presto-driver/internal/host"
	"github.com/shogotsuneto/presto-driver/internal/metrics"
	"github.com/shogotsuneto/presto-driver/internal/queries"
	"github.com/shogotsuneto/presto-driver/internal/query"
)

// MaxRecordsLimit caps the page size of a table preview
const MaxRecordsLimit = 10000

const (
	iconSchema = "group-by-ref-type"
	iconFolder = "folder"
	iconColumn = "column"
)

// GetChildrenForItem returns the explorer children of item. The item's type
// alone decides which catalog query runs.
func (d *Driver) GetChildrenForItem(ctx context.Context, item host.Item, parent *host.Item) ([]host.Item, error) {
	schema := item.Schema
	if schema == "" && parent != nil {
		schema = parent.Schema
	}
	catalog := d.catalogOf(item)

	switch item.Type {
	case host.ContextConnection, host.ContextConnectedConnection:
		return d.catalogItems(ctx, "schemas", queries.FetchSchemas(catalog), schemaItem)
	case host.ContextSchema:
		return []host.Item{
			{Label: "Tables", Type: host.ContextResourceGroup, Schema: schema, Database: catalog, ChildType: host.ContextTable, IconID: iconFolder},
			{Label: "Views", Type: host.ContextResourceGroup, Schema: schema, Database: catalog, ChildType: host.ContextView, IconID: iconFolder},
		}, nil
	case host.ContextTable, host.ContextView:
		ref, err := d.tableRef(item)
		if err != nil {
			return nil, err
		}
		return d.catalogItems(ctx, "columns", queries.FetchColumns(ref), columnItem)
	case host.ContextResourceGroup:
		switch item.ChildType {
		case host.ContextTable:
			return d.catalogItems(ctx, "tables", queries.FetchTables(catalog, schema), tableItem)
		case host.ContextView:
			return d.catalogItems(ctx, "views", queries.FetchViews(catalog, schema), tableItem)
		}
	}
	return []host.Item{}, nil
}

// SearchItems runs the autocomplete search for itemType
func (d *Driver) SearchItems(ctx context.Context, itemType host.ContextValue, search string, params host.SearchParams) ([]host.Item, error) {
	catalog := d.conn.Profile().Catalog

	switch itemType {
	case host.ContextTable, host.ContextView:
		return d.catalogItems(ctx, "search_tables", queries.SearchTables(catalog, search, params.Limit), tableItem)
	case host.ContextColumn:
		refs := make([]queries.TableRef, 0, len(params.Tables))
		for _, t := range params.Tables {
			name := t.Table
			if name == "" {
				name = t.Label
			}
			if name == "" {
				continue
			}
			refs = append(refs, queries.TableRef{Schema: t.Schema, Table: name})
		}
		return d.catalogItems(ctx, "search_columns", queries.SearchColumns(catalog, search, refs, params.Limit), columnItem)
	}
	return []host.Item{}, nil
}

// ShowRecordsOptions selects the page of a table preview
type ShowRecordsOptions struct {
	Limit     int
	Page      int
	RequestID string
}

// ShowRecords returns one page of a table's rows, with the table's total row
// count when the engine can provide it
func (d *Driver) ShowRecords(ctx context.Context, table host.Item, opts ShowRecordsOptions) ([]host.Result, error) {
	ref, err := d.tableRef(table)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = d.conn.Profile().PreviewLimit
	}
	if limit <= 0 {
		limit = config.DefaultPreviewLimit
	}
	if limit > MaxRecordsLimit {
		limit = MaxRecordsLimit
	}
	page := opts.Page
	if page < 0 {
		page = 0
	}
	if page > math.MaxInt/limit {
		return nil, query.NewClientErrorf("page", "page %d is out of range", page)
	}

	client, err := d.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	records := d.executor.ExecuteStatement(ctx, client, queries.FetchRecords(ref, limit, page*limit))
	res := d.toResult(records, requestID)
	res.Page = page
	res.PageSize = limit

	if records.Err == nil {
		count := d.executor.ExecuteStatement(ctx, client, queries.CountRecords(ref))
		if count.Err == nil && len(count.Result.Rows) == 1 {
			res.Total = toInt64(count.Result.Rows[0]["total"])
		}
	}

	return []host.Result{res}, nil
}

// DescribeTable returns the engine's description of a table's columns
func (d *Driver) DescribeTable(ctx context.Context, table host.Item, requestID string) ([]host.Result, error) {
	ref, err := d.tableRef(table)
	if err != nil {
		return nil, err
	}

	client, err := d.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	if requestID == "" {
		requestID = uuid.NewString()
	}

	outcome := d.executor.ExecuteStatement(ctx, client, queries.DescribeTable(ref))
	return []host.Result{d.toResult(outcome, requestID)}, nil
}

func (d *Driver) catalogOf(item host.Item) string {
	if item.Database != "" {
		return item.Database
	}
	return d.conn.Profile().Catalog
}

func (d *Driver) tableRef(item host.Item) (queries.TableRef, error) {
	name := item.Table
	if name == "" {
		name = item.Label
	}
	if name == "" {
		return queries.TableRef{}, query.NewClientErrorf("table", "table item has no name")
	}

	schema := item.Schema
	if schema == "" {
		schema = d.conn.Profile().Schema
	}
	return queries.TableRef{Catalog: d.catalogOf(item), Schema: schema, Table: name}, nil
}

// catalogItems runs a catalog statement and maps each row to a tree item
func (d *Driver) catalogItems(ctx context.Context, kind, sql string, toItem func(map[string]interface{}) host.Item) ([]host.Item, error) {
	client, err := d.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	metrics.CatalogQueries.WithLabelValues(kind).Inc()
	outcome := d.executor.ExecuteStatement(ctx, client, sql)
	if outcome.Err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", strings.ReplaceAll(kind, "_", " "), outcome.Err)
	}

	items := make([]host.Item, 0, len(outcome.Result.Rows))
	for _, row := range outcome.Result.Rows {
		items = append(items, toItem(row))
	}
	return items, nil
}

func schemaItem(row map[string]interface{}) host.Item {
	name := str(row["schema_name"])
	return host.Item{
		Label:     name,
		Type:      host.ContextSchema,
		Database:  str(row["catalog_name"]),
		Schema:    name,
		ChildType: host.ContextResourceGroup,
		IconID:    iconSchema,
	}
}

func tableItem(row map[string]interface{}) host.Item {
	isView := str(row["table_type"]) == "VIEW"
	itemType := host.ContextTable
	if isView {
		itemType = host.ContextView
	}

	name := str(row["table_name"])
	return host.Item{
		Label:     name,
		Type:      itemType,
		Database:  str(row["table_catalog"]),
		Schema:    str(row["table_schema"]),
		Table:     name,
		ChildType: host.ContextColumn,
		IsView:    isView,
	}
}

func columnItem(row map[string]interface{}) host.Item {
	dataType := str(row["data_type"])
	return host.Item{
		Label:      str(row["column_name"]),
		Type:       host.ContextColumn,
		Database:   str(row["table_catalog"]),
		Schema:     str(row["table_schema"]),
		Table:      str(row["table_name"]),
		DataType:   dataType,
		Detail:     dataType,
		IsNullable: strings.EqualFold(str(row["is_nullable"]), "YES"),
		ChildType:  host.ContextNoChild,
		IconID:     iconColumn,
	}
}

func str(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
