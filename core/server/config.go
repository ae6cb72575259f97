package server

import (
	"fmt"
	"strconv"
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// SyncIntervalMinutes schedules a sync run every N minutes while serving. 0 disables it.
	SyncIntervalMinutes int `mapstructure:"sync_interval_minutes" default:"0"`
	// ArchiveReports uploads every run report to object storage.
	ArchiveReports bool `mapstructure:"archive_reports" default:"false"`
}

// Validate checks that the configured values are usable.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Port)
	}
	if c.SyncIntervalMinutes < 0 {
		return fmt.Errorf("invalid sync interval %d", c.SyncIntervalMinutes)
	}
	return nil
}
