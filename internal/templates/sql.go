// internal/templates/sql.go
//
// MySQL-backed template store.
//
// Schema reference (see internal/database/schema.go)
//
//	CREATE TABLE template (
//	    id              CHAR(36)      PRIMARY KEY,
//	    name            VARCHAR(128)  NOT NULL UNIQUE,
//	    author          VARCHAR(128)  NOT NULL,
//	    author_link     VARCHAR(512)  NOT NULL,
//	    category        VARCHAR(64)   NOT NULL,
//	    time            DATETIME      NOT NULL,
//	    dir_path        VARCHAR(1024) NOT NULL,
//	    preview_mobile  VARCHAR(1024) NOT NULL,
//	    preview_desktop VARCHAR(1024) NOT NULL
//	);
//
// Notes
// -----
//   - Upsert is one INSERT … ON DUPLICATE KEY UPDATE keyed by the unique
//     name column.  Every column except id is overwritten, so a record is
//     fully replaced rather than merged.  The id is then read back.
//   - Column list matches row; update both together.
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/preview"
)

const columns = `id, name, author, author_link, category, time,
               dir_path, preview_mobile, preview_desktop`

type row struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Author         string    `db:"author"`
	AuthorLink     string    `db:"author_link"`
	Category       string    `db:"category"`
	Time           time.Time `db:"time"`
	DirPath        string    `db:"dir_path"`
	PreviewMobile  string    `db:"preview_mobile"`
	PreviewDesktop string    `db:"preview_desktop"`
}

func (r row) record() Record {
	return Record{
		ID:         r.ID,
		Name:       r.Name,
		Author:     r.Author,
		AuthorLink: r.AuthorLink,
		Category:   r.Category,
		Time:       r.Time,
		DirPath:    r.DirPath,
		Previews:   preview.Pair{Mobile: r.PreviewMobile, Desktop: r.PreviewDesktop},
	}
}

// SQLStore implements Store on the control-plane database.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open pool.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	return s.one(ctx, `SELECT `+columns+` FROM template WHERE id = ? LIMIT 1`, id)
}

func (s *SQLStore) ByName(ctx context.Context, name string) (*Record, error) {
	return s.one(ctx, `SELECT `+columns+` FROM template WHERE name = ? LIMIT 1`, name)
}

func (s *SQLStore) one(ctx context.Context, q string, arg any) (*Record, error) {
	var r row
	if err := s.db.GetContext(ctx, &r, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %v: %w", arg, errs.ErrNotFound)
		}
		return nil, err
	}
	rec := r.record()
	return &rec, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+columns+` FROM template ORDER BY time DESC`); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *SQLStore) Upsert(ctx context.Context, rec *Record) error {
	const q = `
        INSERT INTO template (` + columns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            author          = VALUES(author),
            author_link     = VALUES(author_link),
            category        = VALUES(category),
            time            = VALUES(time),
            dir_path        = VALUES(dir_path),
            preview_mobile  = VALUES(preview_mobile),
            preview_desktop = VALUES(preview_desktop)`

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, q,
		id, rec.Name, rec.Author, rec.AuthorLink, rec.Category, rec.Time,
		rec.DirPath, rec.Previews.Mobile, rec.Previews.Desktop,
	); err != nil {
		return fmt.Errorf("upsert template %q: %w", rec.Name, err)
	}

	var stored string
	if err := s.db.GetContext(ctx, &stored,
		`SELECT id FROM template WHERE name = ? LIMIT 1`, rec.Name); err != nil {
		return fmt.Errorf("read back template %q: %w", rec.Name, err)
	}
	rec.ID = stored
	return nil
}
