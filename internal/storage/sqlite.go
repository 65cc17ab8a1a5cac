package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"linka/pkg/contracts/domain"
)

// SQLiteStore is a DashboardStore backed by a SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// it to the latest schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, err := Migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "dashboard store ready",
		slog.String("path", path),
		slog.Int64("schema_version", version),
	)
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Save implements DashboardStore
func (s *SQLiteStore) Save(ctx context.Context, d *domain.Dashboard) error {
	if d == nil {
		return errors.New("dashboard is nil")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	state := d.State
	if len(state) == 0 {
		state = json.RawMessage("{}")
	}
	if !json.Valid(state) {
		return errors.New("dashboard state is not valid JSON")
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var created string
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM dashboards WHERE id = ?`, d.ID).Scan(&created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dashboards (id, name, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			d.ID, d.Name, string(state), formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert dashboard: %w", err)
		}
		d.CreatedAt = now
	case err != nil:
		return fmt.Errorf("failed to look up dashboard: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE dashboards SET name = ?, state = ?, updated_at = ? WHERE id = ?`,
			d.Name, string(state), formatTime(now), d.ID)
		if err != nil {
			return fmt.Errorf("failed to update dashboard: %w", err)
		}
		if d.CreatedAt, err = parseTime(created); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dashboard: %w", err)
	}
	d.State = state
	d.UpdatedAt = now

	s.logger.DebugContext(ctx, "dashboard saved", slog.String("dashboard_id", d.ID))
	return nil
}

// Get implements DashboardStore
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Dashboard, error) {
	var (
		d                domain.Dashboard
		state            string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, state, created_at, updated_at FROM dashboards WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &state, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	d.State = json.RawMessage(state)
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

// List implements DashboardStore
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM dashboards ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Dashboard, 0)
	for rows.Next() {
		var (
			d                domain.Dashboard
			created, updated string
		)
		if err := rows.Scan(&d.ID, &d.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if d.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete implements DashboardStore
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Ping checks that the database answers
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion reports the applied migration version
func (s *SQLiteStore) SchemaVersion() (int64, error) {
	return Version(s.db)
}

// Close implements DashboardStore
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
