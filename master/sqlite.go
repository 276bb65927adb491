package master

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements Repository over database/sql with the
// modernc SQLite driver. Timestamps are stored as unix nanoseconds.
type SQLiteRepository struct {
	db  DBTX
	now func() time.Time
}

func NewSQLiteRepository(db DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func sqlitePlaceholder(int) string { return "?" }

func (r *SQLiteRepository) Paginate(ctx context.Context, c Criteria, page PageRequest) (Page, error) {
	where, args := c.sqlWhere(sqlitePlaceholder)
	query := fmt.Sprintf(`SELECT %s FROM masters%s%s LIMIT %d OFFSET %d`,
		recordColumns, where, c.sqlOrder(), page.Limit+1, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("master: query page: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return Page{}, fmt.Errorf("master: scan page: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("master: iterate page: %w", err)
	}
	return trimPage(recs, page), nil
}

func (r *SQLiteRepository) TypeCount(ctx context.Context, c Criteria) ([]TypeCount, error) {
	where, args := c.sqlWhere(sqlitePlaceholder)
	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM masters`+where+` GROUP BY type ORDER BY type`, args...)
	if err != nil {
		return nil, fmt.Errorf("master: type count: %w", err)
	}
	defer rows.Close()

	out := []TypeCount{}
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, fmt.Errorf("master: scan type count: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("master: iterate type count: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Groups(ctx context.Context, c Criteria) ([]string, error) {
	where, args := c.sqlWhere(sqlitePlaceholder)
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT master_group FROM masters`+where+` ORDER BY master_group`, args...)
	if err != nil {
		return nil, fmt.Errorf("master: groups: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("master: scan group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("master: iterate groups: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, id int64) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM masters WHERE id = ? AND deleted_at IS NULL`, id)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("master: find: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, rec Record) (Record, error) {
	now := r.now().UTC().UnixNano()
	query := `
		INSERT INTO masters (parent_id, master_group, type, name, slug, code, abbr, description, status, sort_order, user_id, user_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + recordColumns

	out, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query,
		rec.ParentID,
		rec.Group,
		rec.Type,
		rec.Name,
		rec.Slug,
		rec.Code,
		rec.Abbr,
		rec.Description,
		rec.Status,
		rec.Order,
		rec.UserID,
		rec.UserType,
		now,
		now,
	))
	if err != nil {
		if isSQLiteUnique(err) {
			return Record{}, fmt.Errorf("%w: slug %q already used in %s/%s", ErrConflict, rec.Slug, rec.Group, rec.Type)
		}
		return Record{}, fmt.Errorf("master: insert: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, attrs Attributes) (Record, error) {
	set, args := updateAssignments(attrs, sqlitePlaceholder)
	set = append(set, "updated_at = ?")
	args = append(args, r.now().UTC().UnixNano(), id)

	query := fmt.Sprintf(`UPDATE masters SET %s WHERE id = ? AND deleted_at IS NULL RETURNING %s`,
		strings.Join(set, ", "), recordColumns)

	rec, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		if isSQLiteUnique(err) {
			return Record{}, fmt.Errorf("%w: slug already used", ErrConflict)
		}
		return Record{}, fmt.Errorf("master: update: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (Record, error) {
	query := `UPDATE masters SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL RETURNING ` + recordColumns
	rec, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, r.now().UTC().UnixNano(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("master: delete: %w", err)
	}
	rec.DeletedAt = nil
	return rec, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		parentID  sql.NullInt64
		createdAt int64
		updatedAt int64
		deletedAt sql.NullInt64
	)
	err := row.Scan(
		&rec.ID,
		&parentID,
		&rec.Group,
		&rec.Type,
		&rec.Name,
		&rec.Slug,
		&rec.Code,
		&rec.Abbr,
		&rec.Description,
		&rec.Status,
		&rec.Order,
		&rec.UserID,
		&rec.UserType,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if parentID.Valid {
		id := parentID.Int64
		rec.ParentID = &id
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if deletedAt.Valid {
		t := time.Unix(0, deletedAt.Int64).UTC()
		rec.DeletedAt = &t
	}
	return rec, nil
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
