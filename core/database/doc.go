// Package database handles the connection to the tabular store and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections based on
// the application's configuration. The SQL-backed tabular store (core/tabular) is built
// on the connection returned here.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the database
// within the configured timeout.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table (SHOW COLUMNS on MySQL, PRAGMA
// table_info on SQLite) with lower-cased names, which is how the engine decides which
// workspace fields have a destination column. A schema.table name reads the
// attached or named schema. ListTables lists one schema's tables through
// information_schema on MySQL and <schema>.sqlite_master on SQLite.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(ctx, db, "CRM_CONTACTS")
package database
