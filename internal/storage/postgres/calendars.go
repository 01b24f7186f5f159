package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"teamcal/internal/domain"
)

func (s *Store) CreateCalendar(ctx context.Context, c *domain.Calendar) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Color == "" {
		c.Color = "#3174ad"
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var owner any
		if c.OwnerID != "" {
			owner = c.OwnerID
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO calendars (id, name, category, owner_id, color, is_public, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ID, c.Name, c.Category, owner, c.Color, c.IsPublic, now, now)
		if err != nil {
			return err
		}
		for _, p := range c.Permissions {
			if _, err := tx.Exec(ctx, `
				INSERT INTO calendar_permissions (calendar_id, user_id, level)
				VALUES ($1, $2, $3)
				ON CONFLICT (calendar_id, user_id) DO UPDATE SET level = EXCLUDED.level
			`, c.ID, p.UserID, string(p.Level)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanCalendar(row pgx.Row) (*domain.Calendar, error) {
	var c domain.Calendar
	var owner sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Category, &owner, &c.Color, &c.IsPublic, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFoundOr(err, "calendar")
	}
	c.OwnerID = owner.String
	return &c, nil
}

func (s *Store) GetCalendarByID(ctx context.Context, id string) (*domain.Calendar, error) {
	c, err := scanCalendar(s.pool.QueryRow(ctx, `
		SELECT id, name, category, owner_id, color, is_public, created_at, updated_at
		FROM calendars WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadPermissions(ctx, map[string]*domain.Calendar{c.ID: c}, []string{c.ID}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCalendars(ctx context.Context, ids []string) ([]*domain.Calendar, error) {
	q := `
		SELECT id, name, category, owner_id, color, is_public, created_at, updated_at
		FROM calendars`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return nil, nil
		}
		q += ` WHERE id = ANY($1)`
		args = append(args, ids)
	}
	q += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Calendar
	byID := make(map[string]*domain.Calendar)
	var calIDs []string
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		byID[c.ID] = c
		calIDs = append(calIDs, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(calIDs) > 0 {
		if err := s.loadPermissions(ctx, byID, calIDs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadPermissions(ctx context.Context, byID map[string]*domain.Calendar, ids []string) error {
	rows, err := s.pool.Query(ctx, `
		SELECT calendar_id, user_id, level
		FROM calendar_permissions
		WHERE calendar_id = ANY($1)
		ORDER BY user_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var calID, userID, level string
		if err := rows.Scan(&calID, &userID, &level); err != nil {
			return err
		}
		if c, ok := byID[calID]; ok {
			c.Permissions = append(c.Permissions, domain.Permission{UserID: userID, Level: domain.Level(level)})
		}
	}
	return rows.Err()
}

func (s *Store) UpdateCalendar(ctx context.Context, c *domain.Calendar) error {
	c.UpdatedAt = time.Now().UTC()
	var owner any
	if c.OwnerID != "" {
		owner = c.OwnerID
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE calendars
		SET name = $1, category = $2, owner_id = $3, color = $4, is_public = $5, updated_at = $6
		WHERE id = $7
	`, c.Name, c.Category, owner, c.Color, c.IsPublic, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("calendar %s", c.ID)
	}
	return nil
}

func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM calendars WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFoundf("calendar %s", id)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM calendar_permissions WHERE calendar_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM events WHERE calendar_id = $1`, id)
		return err
	})
}

func (s *Store) UpsertPermission(ctx context.Context, calendarID, userID string, level domain.Level) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_permissions (calendar_id, user_id, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (calendar_id, user_id) DO UPDATE SET level = EXCLUDED.level
	`, calendarID, userID, string(level))
	return err
}

func (s *Store) DeletePermission(ctx context.Context, calendarID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM calendar_permissions WHERE calendar_id = $1 AND user_id = $2
	`, calendarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("permission for user %s on calendar %s", userID, calendarID)
	}
	return nil
}

func (s *Store) AccessibleCalendarIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM calendars WHERE owner_id = $1 OR is_public
		UNION
		SELECT calendar_id FROM calendar_permissions WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *Store) PublicCalendarIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM calendars WHERE is_public`)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *Store) AllCalendarIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM calendars`)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
