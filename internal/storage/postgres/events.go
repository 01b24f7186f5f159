package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

func (s *Store) CreateEvent(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, calendar_id, subject, description, start_time, end_time, all_day, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.CalendarID, e.Subject, e.Description, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.CreatedBy, now, now)
	return err
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	if err := row.Scan(&e.ID, &e.CalendarID, &e.Subject, &e.Description, &e.StartTime, &e.EndTime, &e.AllDay, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, notFoundOr(err, "event")
	}
	return &e, nil
}

func (s *Store) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, `
		SELECT id, calendar_id, subject, description, start_time, end_time, all_day, created_by, created_at, updated_at
		FROM events WHERE id = $1`, id))
}

func (s *Store) UpdateEvent(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE events
		SET subject = $1, description = $2, start_time = $3, end_time = $4, all_day = $5, updated_at = $6
		WHERE id = $7
	`, e.Subject, e.Description, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("event %s", e.ID)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("event %s", id)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, q storage.EventQuery) ([]*domain.Event, error) {
	if len(q.CalendarIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, calendar_id, subject, description, start_time, end_time, all_day, created_by, created_at, updated_at
		FROM events
		WHERE calendar_id = ANY($1)`
	args := []any{q.CalendarIDs}
	next := 2

	// Window overlap: starts in range, ends in range, or spans the range.
	switch {
	case q.Start != nil && q.End != nil:
		query += fmt.Sprintf(` AND ((start_time >= $%d AND start_time <= $%d)
			OR (end_time >= $%d AND end_time <= $%d)
			OR (start_time <= $%d AND end_time >= $%d))`, next, next+1, next, next+1, next, next+1)
		args = append(args, q.Start.UTC(), q.End.UTC())
		next += 2
	case q.Start != nil:
		query += fmt.Sprintf(` AND (start_time >= $%d OR end_time >= $%d)`, next, next)
		args = append(args, q.Start.UTC())
		next++
	case q.End != nil:
		query += fmt.Sprintf(` AND (start_time <= $%d OR end_time <= $%d)`, next, next)
		args = append(args, q.End.UTC())
		next++
	}

	if q.Search != "" {
		query += fmt.Sprintf(` AND (subject ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')`, next, next)
		args = append(args, q.Search)
	}

	query += ` ORDER BY start_time ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
