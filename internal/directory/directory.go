// Package directory is the relay's read-only view of the directory
// datastore: the two queries that gate slug registration and drive the
// redirect fallback for slugs with no live tunnel. spec.md §6 leaves the
// parameter style unspecified; this implementation uses database/sql with
// the lib/pq postgres driver and ordinal placeholders ($1, $2).
package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store is the two-query interface the HTTP ingress and server tunnel
// session depend on. It is an interface (rather than a concrete *sql.DB
// wrapper used directly) so tests can substitute an in-memory fake.
type Store interface {
	// Lookup reports whether (slug, token) names an active instance.
	Lookup(ctx context.Context, slug, token string) (ok bool, err error)
	// RedirectURL returns the stored URL for an active slug.
	RedirectURL(ctx context.Context, slug string) (url string, ok bool, err error)
}

// SQLStore is a Store backed by a PostgreSQL directory_instances table.
type SQLStore struct {
	db *sql.DB
}

// Open connects to the directory database. databaseURL is a postgres:// DSN.
func Open(databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("directory: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("directory: connecting to database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Lookup implements Store.
func (s *SQLStore) Lookup(ctx context.Context, slug, token string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM directory_instances WHERE slug=$1 AND token=$2 AND status='active'`,
		slug, token,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("directory: looking up slug %q: %w", slug, err)
	default:
		return true, nil
	}
}

// RedirectURL implements Store.
func (s *SQLStore) RedirectURL(ctx context.Context, slug string) (string, bool, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT url FROM directory_instances WHERE slug=$1 AND status='active'`,
		slug,
	).Scan(&url)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("directory: looking up redirect for slug %q: %w", slug, err)
	default:
		return url, true, nil
	}
}
