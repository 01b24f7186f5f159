package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.DisplayName, u.PasswordHash, storage.EncodeRoles(u.Roles), now, now)
	if isUniqueViolation(err) {
		return domain.Invalidf("username %q already exists", u.Username)
	}
	return err
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var roles string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("user")
		}
		return nil, err
	}
	u.Roles = storage.DecodeRoles(roles)
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, password_hash, roles, created_at, updated_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, password_hash, roles, created_at, updated_at
		FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, display_name, password_hash, roles, created_at, updated_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = ?, password_hash = ?, roles = ?, updated_at = ?
		WHERE id = ?
	`, u.DisplayName, u.PasswordHash, storage.EncodeRoles(u.Roles), u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("user %s", u.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFoundf("user %s", id)
		}
		// Cascade: drop the user's permission entries and clear ownership.
		if _, err := tx.Exec(`DELETE FROM calendar_permissions WHERE user_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE calendars SET owner_id = NULL WHERE owner_id = ?`, id)
		return err
	})
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE ',' || roles || ',' LIKE '%,admin,%'
	`).Scan(&n)
	return n, err
}
