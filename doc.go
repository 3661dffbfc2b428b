// Package tablesql provides an embedded SQL workspace for tabular files.
// It loads CSV, TSV, JSON, Excel (XLSX), and Markdown tables into DuckDB
// and lets callers query them with standard SQL, without running a
// database server.
//
// tablesql decides where each registered table physically lives. Small and
// medium tables are materialized as native in-memory tables inside the
// engine; tables at or above the large-table threshold are exposed as views
// over an on-disk file, first a CSV written at registration time and then a
// ZSTD-compressed Parquet file produced by a background conversion. Table
// state survives restarts: memory tables can be exported to Parquet and
// re-registered on startup, picking their storage tier from the persisted
// row count.
//
// All access to the single engine connection is serialized through one
// Store. If a query fails for a reason other than a SQL syntax error, the
// Store reopens the connection, replays every registered table from its
// cached data or backing file, and retries the query once.
//
// # Basic Usage
//
//	store, err := tablesql.Open("data/users.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	result, err := store.Execute(ctx, "SELECT name, age FROM users WHERE age > 25")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range result.Rows {
//	    fmt.Println(row)
//	}
//
// # Advanced Usage
//
// For more control, build a Store directly and register datasets parsed
// elsewhere:
//
//	store, err := tablesql.NewStore(tablesql.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	ds := tablesql.NewDataset("events", header, records)
//	if err := store.RegisterTable(ctx, ds); err != nil {
//	    log.Fatal(err)
//	}
//
// # Table Naming
//
// Table names are derived from file paths:
//   - "users.csv" becomes table "users"
//   - "data.csv.gz" becomes table "data"
//   - "/path/to/report.xlsx" becomes table "report"
//
// Names are sanitized to safe SQL identifiers and always quoted in
// generated SQL.
//
// # SQL Syntax
//
// tablesql uses DuckDB as its embedded engine, so all SQL follows DuckDB's
// dialect, including CTEs, window functions, and the full analytical
// function set. Unbounded SELECT statements get a default row cap appended
// to bound result size; statements with an explicit LIMIT are left alone.
//
// For the full SQL reference, see: https://duckdb.org/docs/sql/introduction
package tablesql
