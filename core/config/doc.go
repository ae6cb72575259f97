// Package config provides configuration management for workspace-sync.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, schedule)
//   - Database: tabular store connection, schema and biscuits (DATABASE_BISCUITS, comma separated)
//   - Workspace: Notion API key and client settings
//   - Sync: engine settings (page size, batch size, retries, workers)
//   - Storage: S3/MinIO settings for the run report archive
//   - Log: Logging level and format
//
// Three settings are read from prefixed variables instead of fixed keys:
//   - bindings: every variable starting with SYNC_TABLE_PREFIX (default CRM_),
//     e.g. CRM_CONTACTS=<container id>
//   - pre-work: SYNC_PREWORK_<NAME>=<sql>, run in name order
//   - post-work: SYNC_POSTWORK_<NAME>=<sql>, run in name order
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Bindings)
package config
