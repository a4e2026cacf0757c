package upload

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed width so stored timestamps compare lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Entry is an in-flight upload remembered for resumption.
type Entry struct {
	Fingerprint string
	UploadURL   string
	LocalPath   string
	Size        int64
	UpdatedAt   time.Time
}

// Store remembers tus upload URLs by file fingerprint so an interrupted
// transfer continues from the server offset instead of starting over.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (or creates) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create upload store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the upload URL stored for fingerprint.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	var uploadURL string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT upload_url FROM uploads WHERE fingerprint = ?`, fingerprint).Scan(&uploadURL)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup upload: %w", err)
	}
	return uploadURL, true, nil
}

// Save records the upload URL for fingerprint. A zero UpdatedAt means now.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	stamp := entry.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	now := stamp.UTC().Format(timestampLayout)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO uploads (fingerprint, upload_url, local_path, size_bytes, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(fingerprint) DO UPDATE SET upload_url = excluded.upload_url, updated_at = excluded.updated_at`,
			entry.Fingerprint, entry.UploadURL, entry.LocalPath, entry.Size, now, now,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}

// Remove forgets fingerprint.
func (s *Store) Remove(ctx context.Context, fingerprint string) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE fingerprint = ?`, fingerprint)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// List returns every remembered upload, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, upload_url, local_path, size_bytes, updated_at FROM uploads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			updated string
		)
		if err := rows.Scan(&e.Fingerprint, &e.UploadURL, &e.LocalPath, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(timestampLayout, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneBefore removes entries last touched before cutoff. Servers expire
// partial uploads, so old URLs are useless.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM uploads WHERE updated_at < ?`, cutoff.UTC().Format(timestampLayout))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune uploads: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if exists > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	return tx.Commit()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
