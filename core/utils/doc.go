// Package utils provides common utility functions for the workspace-sync application.
// It includes helpers for type conversion and environment parsing that don't fit
// into domain-specific packages.
package utils
