// Package files stores raw dataset uploads on disk.
//
// Manager writes uploads atomically under the uploads directory as
// "<dataset id>_<original name>" and removes them again; Discovery lists
// what is stored so datasets can be reloaded after a restart.
//
//	m := files.NewManager(paths, logger)
//	path, size, err := m.SaveUpload(id, "sales.csv", r, cfg.Upload.MaxSizeBytes)
package files
