package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS archived_media (
	name       TEXT PRIMARY KEY,
	mime       TEXT NOT NULL,
	body       BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_archived_media_created ON archived_media(created_at DESC);
`

// archivedEncoding is the artifact kept in the archive.
const archivedEncoding = chat.EncodingJPG

// SQLiteArchiver keeps archived artifacts in a SQLite database.
type SQLiteArchiver struct {
	db      *sql.DB
	baseURL string
}

// NewSQLite opens (or creates) the archive database at dbPath.
// baseURL prefixes item names in List results.
func NewSQLite(dbPath, baseURL string) (*SQLiteArchiver, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteArchiver{db: db, baseURL: baseURL}, nil
}

// Close closes the database connection.
func (s *SQLiteArchiver) Close() error {
	return s.db.Close()
}

// Archive stores the jpg artifact as "<name>.jpg".
func (s *SQLiteArchiver) Archive(ctx context.Context, meta Metadata, media chat.Media) error {
	body, ok := media[archivedEncoding]
	if !ok {
		return fmt.Errorf("archive %s: no %s artifact", meta.Name, archivedEncoding)
	}
	mime, _ := chat.MimeType(archivedEncoding)

	query := `
		INSERT INTO archived_media (name, mime, body)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, meta.Name+"."+archivedEncoding, mime, body); err != nil {
		return fmt.Errorf("insert archived media: %w", err)
	}
	return nil
}

// List returns archived items, newest first.
func (s *SQLiteArchiver) List(ctx context.Context) ([]Archived, error) {
	query := `
		SELECT name, length(body), created_at
		FROM archived_media
		ORDER BY created_at DESC, name DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query archived media: %w", err)
	}
	defer rows.Close()

	var items []Archived
	for rows.Next() {
		var item Archived
		if err := rows.Scan(&item.Name, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archived media: %w", err)
		}
		item.URL = s.baseURL + item.Name
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived media: %w", err)
	}
	return items, nil
}

// Get returns the stored artifact for name.
func (s *SQLiteArchiver) Get(ctx context.Context, name string) ([]byte, error) {
	query := `SELECT body FROM archived_media WHERE name = ?`

	var body []byte
	err := s.db.QueryRowContext(ctx, query, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query archived media: %w", err)
	}
	return body, nil
}

var _ Archiver = (*SQLiteArchiver)(nil)
