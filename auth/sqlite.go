package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepository implements Repository over database/sql. Timestamps are
// unix nanoseconds.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	now := time.Now().UTC().UnixNano()
	const insertSQL = `
		INSERT INTO users (id, email, full_name, password_hash, user_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + userColumns

	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, insertSQL,
		uuid.NewString(), normalizeEmail(params.Email), params.FullName, params.PasswordHash, string(params.UserType), now, now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return user, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by email: %w", err)
	}
	return user, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by id: %w", err)
	}
	return user, nil
}

func scanSQLiteUser(row *sql.Row) (User, error) {
	var (
		user      User
		userType  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &userType, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	user.UserType = UserType(userType)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	user.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return user, nil
}
