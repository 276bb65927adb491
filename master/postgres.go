package master

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, parent_id, master_group, type, name, slug, code, abbr, description, status, sort_order, user_id, user_type, created_at, updated_at, deleted_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func pgPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (r *PGRepository) Paginate(ctx context.Context, c Criteria, page PageRequest) (Page, error) {
	where, args := c.sqlWhere(pgPlaceholder)
	query := fmt.Sprintf(`SELECT %s FROM masters%s%s LIMIT %d OFFSET %d`,
		recordColumns, where, c.sqlOrder(), page.Limit+1, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("master: query page: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
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

func (r *PGRepository) TypeCount(ctx context.Context, c Criteria) ([]TypeCount, error) {
	where, args := c.sqlWhere(pgPlaceholder)
	rows, err := r.pool.Query(ctx, `SELECT type, COUNT(*) FROM masters`+where+` GROUP BY type ORDER BY type`, args...)
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

func (r *PGRepository) Groups(ctx context.Context, c Criteria) ([]string, error) {
	where, args := c.sqlWhere(pgPlaceholder)
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT master_group FROM masters`+where+` ORDER BY master_group`, args...)
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

func (r *PGRepository) Find(ctx context.Context, id int64) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM masters WHERE id = $1 AND deleted_at IS NULL`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("master: find: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) Create(ctx context.Context, rec Record) (Record, error) {
	query := `
		INSERT INTO masters (parent_id, master_group, type, name, slug, code, abbr, description, status, sort_order, user_id, user_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + recordColumns

	out, err := scanRecord(r.pool.QueryRow(ctx, query,
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
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: slug %q already used in %s/%s", ErrConflict, rec.Slug, rec.Group, rec.Type)
		}
		return Record{}, fmt.Errorf("master: insert: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Update(ctx context.Context, id int64, attrs Attributes) (Record, error) {
	set, args := updateAssignments(attrs, pgPlaceholder)
	set = append(set, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE masters SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(set, ", "), len(args), recordColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: slug already used", ErrConflict)
		}
		return Record{}, fmt.Errorf("master: update: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (Record, error) {
	query := `UPDATE masters SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL RETURNING ` + recordColumns
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("master: delete: %w", err)
	}
	rec.DeletedAt = nil
	return rec, nil
}

func (r *PGRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.ParentID,
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
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// updateAssignments renders the SET list for the supplied attributes in a
// stable column order. A parent_id of 0 clears the parent.
func updateAssignments(attrs Attributes, ph func(n int) string) ([]string, []any) {
	fields := attrs.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		value := fields[name]
		if name == "parent_id" && value == int64(0) {
			value = nil
		}
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = %s", columns[name], ph(len(args))))
	}
	return set, args
}

// trimPage cuts the limit+1 probe row and records whether more rows exist.
func trimPage(recs []Record, page PageRequest) Page {
	out := Page{Page: max(page.Page, 1), Limit: page.Limit, Records: recs}
	if len(recs) > page.Limit {
		out.Records = recs[:page.Limit]
		out.HasMore = true
	}
	return out
}
