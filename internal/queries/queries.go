// Package queries builds the catalog introspection statements the explorer
// and search features run against the engine.
package queries

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// DefaultSearchLimit caps search results when the caller gives no limit
const DefaultSearchLimit = 100

// TableRef identifies a table or view by catalog, schema and name
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

// QualifiedName returns the quoted catalog.schema.table name
func (t TableRef) QualifiedName() string {
	parts := make([]string, 0, 3)
	if t.Catalog != "" {
		parts = append(parts, pq.QuoteIdentifier(t.Catalog))
	}
	if t.Schema != "" {
		parts = append(parts, pq.QuoteIdentifier(t.Schema))
	}
	parts = append(parts, pq.QuoteIdentifier(t.Table))
	return strings.Join(parts, ".")
}

// QuoteLiteral quotes s as a SQL string literal
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// likeContains builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'
func likeContains(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(search))
	return QuoteLiteral("%" + escaped + "%")
}

func informationSchema(catalog, view string) string {
	if catalog == "" {
		return "information_schema." + view
	}
	return pq.QuoteIdentifier(catalog) + ".information_schema." + view
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// FetchSchemas lists the schemas of a catalog
func FetchSchemas(catalog string) string {
	return fmt.Sprintf(`SELECT catalog_name, schema_name
FROM %s
WHERE schema_name <> 'information_schema'
ORDER BY schema_name`, informationSchema(catalog, "schemata"))
}

func fetchTablesOfType(catalog, schema, tableType string) string {
	return fmt.Sprintf(`SELECT table_catalog, table_schema, table_name, table_type
FROM %s
WHERE table_schema = %s
  AND table_type = %s
ORDER BY table_name`, informationSchema(catalog, "tables"), QuoteLiteral(schema), QuoteLiteral(tableType))
}

// FetchTables lists the base tables of a schema
func FetchTables(catalog, schema string) string {
	return fetchTablesOfType(catalog, schema, "BASE TABLE")
}

// FetchViews lists the views of a schema
func FetchViews(catalog, schema string) string {
	return fetchTablesOfType(catalog, schema, "VIEW")
}

// FetchColumns lists the columns of a table or view in ordinal order
func FetchColumns(t TableRef) string {
	return fmt.Sprintf(`SELECT table_catalog, table_schema, table_name, column_name, data_type, is_nullable
FROM %s
WHERE table_schema = %s
  AND table_name = %s
ORDER BY ordinal_position`, informationSchema(t.Catalog, "columns"), QuoteLiteral(t.Schema), QuoteLiteral(t.Table))
}

// SearchTables finds tables and views whose name contains search
func SearchTables(catalog, search string, limit int) string {
	return fmt.Sprintf(`SELECT table_catalog, table_schema, table_name, table_type
FROM %s
WHERE table_schema <> 'information_schema'
  AND lower(table_name) LIKE %s ESCAPE '\'
ORDER BY table_name
LIMIT %d`, informationSchema(catalog, "tables"), likeContains(search), limitOrDefault(limit))
}

// SearchColumns finds columns whose name contains search, optionally
// restricted to the given tables
func SearchColumns(catalog, search string, tables []TableRef, limit int) string {
	var filter string
	if len(tables) > 0 {
		conds := make([]string, 0, len(tables))
		for _, t := range tables {
			if t.Schema == "" {
				conds = append(conds, fmt.Sprintf("table_name = %s", QuoteLiteral(t.Table)))
				continue
			}
			conds = append(conds, fmt.Sprintf("(table_schema = %s AND table_name = %s)", QuoteLiteral(t.Schema), QuoteLiteral(t.Table)))
		}
		filter = "\n  AND (" + strings.Join(conds, " OR ") + ")"
	}

	return fmt.Sprintf(`SELECT table_catalog, table_schema, table_name, column_name, data_type, is_nullable
FROM %s
WHERE table_schema <> 'information_schema'
  AND lower(column_name) LIKE %s ESCAPE '\'%s
ORDER BY table_name, ordinal_position
LIMIT %d`, informationSchema(catalog, "columns"), likeContains(search), filter, limitOrDefault(limit))
}

// FetchRecords selects one page of rows from a table
func FetchRecords(t TableRef, limit, offset int) string {
	q := "SELECT * FROM " + t.QualifiedName()
	if offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", offset)
	}
	return q + fmt.Sprintf(" LIMIT %d", limit)
}

// CountRecords counts the rows of a table
func CountRecords(t TableRef) string {
	return "SELECT count(*) AS total FROM " + t.QualifiedName()
}

// DescribeTable returns the engine's column description of a table
func DescribeTable(t TableRef) string {
	return "DESCRIBE " + t.QualifiedName()
}
