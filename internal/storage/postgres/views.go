package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"teamcal/internal/domain"
)

func (s *Store) CreateView(ctx context.Context, v *domain.View) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO views (id, name, alias, column_count, padding_px, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, v.ID, v.Name, v.Alias, v.ColumnCount, v.PaddingPx, v.CreatedBy, now, now)
		if err != nil {
			return err
		}
		return insertViewCalendars(ctx, tx, v.ID, v.CalendarIDs)
	})
	if isUniqueViolation(err) {
		return domain.Invalidf("alias %q already in use", v.Alias)
	}
	return err
}

func insertViewCalendars(ctx context.Context, tx pgx.Tx, viewID string, calendarIDs []string) error {
	for i, calID := range calendarIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO view_calendars (view_id, calendar_id, position) VALUES ($1, $2, $3)
		`, viewID, calID, i); err != nil {
			return err
		}
	}
	return nil
}

func scanView(row pgx.Row) (*domain.View, error) {
	var v domain.View
	if err := row.Scan(&v.ID, &v.Name, &v.Alias, &v.ColumnCount, &v.PaddingPx, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, notFoundOr(err, "view")
	}
	return &v, nil
}

func (s *Store) getView(ctx context.Context, where string, arg any) (*domain.View, error) {
	v, err := scanView(s.pool.QueryRow(ctx, `
		SELECT id, name, alias, column_count, padding_px, created_by, created_at, updated_at
		FROM views WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT calendar_id FROM view_calendars WHERE view_id = $1 ORDER BY position`, v.ID)
	if err != nil {
		return nil, err
	}
	v.CalendarIDs, err = collectIDs(rows)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) GetViewByID(ctx context.Context, id string) (*domain.View, error) {
	return s.getView(ctx, "id = $1", id)
}

func (s *Store) GetViewByAlias(ctx context.Context, alias string) (*domain.View, error) {
	return s.getView(ctx, "alias = $1", alias)
}

func (s *Store) ListViews(ctx context.Context) ([]*domain.View, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, alias, column_count, padding_px, created_by, created_at, updated_at
		FROM views ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.View
	byID := make(map[string]*domain.View)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		byID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	crows, err := s.pool.Query(ctx, `
		SELECT view_id, calendar_id FROM view_calendars ORDER BY view_id, position`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var viewID, calID string
		if err := crows.Scan(&viewID, &calID); err != nil {
			return nil, err
		}
		if v, ok := byID[viewID]; ok {
			v.CalendarIDs = append(v.CalendarIDs, calID)
		}
	}
	return out, crows.Err()
}

func (s *Store) UpdateView(ctx context.Context, v *domain.View) error {
	v.UpdatedAt = time.Now().UTC()
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE views
			SET name = $1, alias = $2, column_count = $3, padding_px = $4, updated_at = $5
			WHERE id = $6
		`, v.Name, v.Alias, v.ColumnCount, v.PaddingPx, v.UpdatedAt, v.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFoundf("view %s", v.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM view_calendars WHERE view_id = $1`, v.ID); err != nil {
			return err
		}
		return insertViewCalendars(ctx, tx, v.ID, v.CalendarIDs)
	})
	if isUniqueViolation(err) {
		return domain.Invalidf("alias %q already in use", v.Alias)
	}
	return err
}

func (s *Store) DeleteView(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM views WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFoundf("view %s", id)
		}
		_, err = tx.Exec(ctx, `DELETE FROM view_calendars WHERE view_id = $1`, id)
		return err
	})
}
