// Package storage persists saved dashboards.
//
// The only implementation is SQLiteStore, a pure Go SQLite database whose
// schema is managed by embedded goose migrations. Callers depend on the
// DashboardStore interface so handlers and services can be tested against
// an in-memory fake.
package storage
