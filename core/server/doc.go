// Package server holds the HTTP server configuration.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structure and its validation.
//
// # Configuration
//
// The Config struct defines the HTTP port, the API key, the optional sync
// schedule and whether run reports are archived.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by the start command.
package server
