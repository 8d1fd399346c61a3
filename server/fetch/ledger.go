package fetch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

/*
The ledger is a sqlite record of acquired videos, keyed by the requesting
user. It exists so users can list what they have pulled in without a bucket
listing, which the store's access policy does not allow from the server side.
*/

////////////////////////////////////////////////////////////////////////////////

// Entry is one acquired video.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Path      string    `json:"video_file_path"`
	Size      int64     `json:"size"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger records acquired videos in sqlite.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens or creates a ledger at the supplied path. Pass ":memory:"
// for an ephemeral ledger.
func NewLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	l := &Ledger{db: db}
	if err := l.initialize(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initialize() error {
	if _, err := l.db.Exec(`
	create table if not exists downloads (
		id integer primary key autoincrement,
		user_id text not null,
		path text not null,
		size bigint not null,
		source_url text not null,
		created_at timestamp not null
	);
	create index if not exists downloads_user_idx on downloads(user_id);
	`); err != nil {
		return fmt.Errorf("failed to migrate ledger database: %w", err)
	}
	return nil
}

// Record inserts an entry into the ledger.
func (l *Ledger) Record(ctx context.Context, entry Entry) error {
	_, err := l.db.ExecContext(ctx, `
	insert into downloads (user_id, path, size, source_url, created_at) values ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Path, entry.Size, entry.SourceURL, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// List returns the user's entries, most recent first.
func (l *Ledger) List(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
	select id, user_id, path, size, source_url, created_at
	from downloads where user_id = $1 order by created_at desc, id desc`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Path, &entry.Size, &entry.SourceURL, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close ledger database: %w", err)
	}
	return nil
}
