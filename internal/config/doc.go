// Package config loads and validates the application configuration.
//
// # Configuration Sources
//
// Values are layered in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. config.yaml (or the file named by LINKA_CONFIG)
//	3. Defaults
//
// Environment variables use the LINKA prefix and the section names:
//
//	LINKA_SERVER_PORT=8080
//	LINKA_LOGGING_LEVEL=debug
//	LINKA_STORAGE_SQLITE_PATH=/var/lib/linka/linka.db
//	LINKA_UPLOAD_MAX_SIZE_BYTES=104857600
//
// # Path Management
//
// ResolvePaths turns the configured directories into absolute paths under a
// base directory (the executable's directory unless LINKA_PATHS_BASE_DIR is
// set):
//
//	paths, err := cfg.ResolvePaths()
//	upload := paths.UploadPath(id, "sales.csv")
//
// # Testing
//
// Default returns a configuration that needs no environment; point
// Paths.BaseDir at t.TempDir() before resolving paths.
package config
