package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, display_name, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.DisplayName, u.PasswordHash, storage.EncodeRoles(u.Roles), now, now)
	if isUniqueViolation(err) {
		return domain.Invalidf("username %q already exists", u.Username)
	}
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var roles string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFoundOr(err, "user")
	}
	u.Roles = storage.DecodeRoles(roles)
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, display_name, password_hash, roles, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, display_name, password_hash, roles, created_at, updated_at
		FROM users WHERE username = $1`, username))
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET display_name = $1, password_hash = $2, roles = $3, updated_at = $4
		WHERE id = $5
	`, u.DisplayName, u.PasswordHash, storage.EncodeRoles(u.Roles), u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("user %s", u.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFoundf("user %s", id)
		}
		// Cascade: drop the user's permission entries and clear ownership.
		if _, err := tx.Exec(ctx, `DELETE FROM calendar_permissions WHERE user_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE calendars SET owner_id = NULL WHERE owner_id = $1`, id)
		return err
	})
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE ',' || roles || ',' LIKE '%,admin,%'
	`).Scan(&n)
	return n, err
}
