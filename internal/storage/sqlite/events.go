package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"teamcal/internal/domain"
	"teamcal/internal/storage"
)

func (s *Store) CreateEvent(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, calendar_id, subject, description, start_time, end_time, all_day, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.CalendarID, e.Subject, e.Description, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.CreatedBy, now, now)
	return err
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	var e domain.Event
	if err := row.Scan(&e.ID, &e.CalendarID, &e.Subject, &e.Description, &e.StartTime, &e.EndTime, &e.AllDay, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("event")
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, calendar_id, subject, description, start_time, end_time, all_day, created_by, created_at, updated_at
		FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func (s *Store) UpdateEvent(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET subject = ?, description = ?, start_time = ?, end_time = ?, all_day = ?, updated_at = ?
		WHERE id = ?
	`, e.Subject, e.Description, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("event %s", e.ID)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
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
		WHERE calendar_id IN (` + placeholders(len(q.CalendarIDs)) + `)`
	args := idArgs(q.CalendarIDs)

	// Window overlap: starts in range, ends in range, or spans the range.
	switch {
	case q.Start != nil && q.End != nil:
		query += ` AND ((start_time >= ? AND start_time <= ?)
			OR (end_time >= ? AND end_time <= ?)
			OR (start_time <= ? AND end_time >= ?))`
		s, e := q.Start.UTC(), q.End.UTC()
		args = append(args, s, e, s, e, s, e)
	case q.Start != nil:
		query += ` AND (start_time >= ? OR end_time >= ?)`
		s := q.Start.UTC()
		args = append(args, s, s)
	case q.End != nil:
		query += ` AND (start_time <= ? OR end_time <= ?)`
		e := q.End.UTC()
		args = append(args, e, e)
	}

	if q.Search != "" {
		query += ` AND (LOWER(subject) LIKE '%' || LOWER(?) || '%' OR LOWER(description) LIKE '%' || LOWER(?) || '%')`
		args = append(args, q.Search, q.Search)
	}

	query += ` ORDER BY start_time ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
