// internal/site/sql.go
//
// MySQL-backed site store.
//
// Schema reference (see internal/database/schema.go)
//
//	site          (id, owner_id, dir_path, name, category, created_at)
//	site_binding  (site_id, position, selector, value, link)
//
// Notes
// -----
//   - Bindings are rows ordered by position.  SaveBindings deletes and
//     re-inserts the whole list inside one transaction.
//   - Insert writes the site row and its bindings in one transaction so a
//     record is never visible without its content.
//   - Rename relies on clientFoundRows=true in the DSN; without it MySQL
//     reports zero affected rows for an unchanged name.
package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
)

type siteRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	DirPath   string    `db:"dir_path"`
	Name      string    `db:"name"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
}

type bindingRow struct {
	Selector *string `db:"selector"`
	Value    *string `db:"value"`
	Link     *string `db:"link"`
}

func (r siteRow) record(b []assemble.Binding) Record {
	return Record{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		DirPath:  r.DirPath,
		Bindings: b,
		Meta:     Meta{Name: r.Name, Category: r.Category, CreatedAt: r.CreatedAt},
	}
}

// SQLStore implements Store on the control-plane database.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open pool.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Insert(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO site (id, owner_id, dir_path, name, category, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.DirPath, rec.Meta.Name, rec.Meta.Category, rec.Meta.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert site %s: %w", rec.ID, err)
	}
	if err := insertBindings(ctx, tx, rec.ID, rec.Bindings); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	const q = `
        SELECT id, owner_id, dir_path, name, category, created_at
        FROM   site
        WHERE  id = ?
        LIMIT  1`
	var r siteRow
	if err := s.db.GetContext(ctx, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("site %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	b, err := s.bindings(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := r.record(b)
	return &rec, nil
}

func (s *SQLStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	const q = `
        SELECT   id, owner_id, dir_path, name, category, created_at
        FROM     site
        WHERE    owner_id = ?
        ORDER BY created_at`
	var rows []siteRow
	if err := s.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		b, err := s.bindings(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, r.record(b))
	}
	return out, nil
}

func (s *SQLStore) bindings(ctx context.Context, siteID string) ([]assemble.Binding, error) {
	const q = `
        SELECT   selector, value, link
        FROM     site_binding
        WHERE    site_id = ?
        ORDER BY position`
	rows := make([]bindingRow, 0, 8)
	if err := s.db.SelectContext(ctx, &rows, q, siteID); err != nil {
		return nil, err
	}
	out := make([]assemble.Binding, 0, len(rows))
	for _, r := range rows {
		out = append(out, assemble.Binding{Selector: r.Selector, Value: r.Value, Link: r.Link})
	}
	return out, nil
}

func (s *SQLStore) SaveBindings(ctx context.Context, id string, bindings []assemble.Binding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM site WHERE id = ? FOR UPDATE`, id); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("site %s: %w", id, errs.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM site_binding WHERE site_id = ?`, id); err != nil {
		return fmt.Errorf("clear bindings %s: %w", id, err)
	}
	if err := insertBindings(ctx, tx, id, bindings); err != nil {
		return err
	}
	return tx.Commit()
}

func insertBindings(ctx context.Context, tx *sqlx.Tx, siteID string, bindings []assemble.Binding) error {
	const q = `
        INSERT INTO site_binding (site_id, position, selector, value, link)
        VALUES (?, ?, ?, ?, ?)`
	for i, b := range bindings {
		if _, err := tx.ExecContext(ctx, q, siteID, i, b.Selector, b.Value, b.Link); err != nil {
			return fmt.Errorf("insert binding %s#%d: %w", siteID, i, err)
		}
	}
	return nil
}

func (s *SQLStore) Rename(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE site SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("site %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
