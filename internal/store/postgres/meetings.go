package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attend/internal/store"
)

// MeetingRepository provides PostgreSQL-backed meetings.
type MeetingRepository struct {
	pool *Pool
}

// NewMeetingRepository creates a new meeting repository.
func NewMeetingRepository(pool *Pool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

// Active returns the most recently started meeting without an end time.
func (r *MeetingRepository) Active(ctx context.Context) (store.Meeting, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, title, start_time, end_time
		FROM meetings
		WHERE end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`)

	var m store.Meeting
	var endTime sql.NullTime
	err := row.Scan(&m.ID, &m.Title, &m.StartTime, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Meeting{}, store.ErrNoActiveMeeting
	}
	if err != nil {
		return store.Meeting{}, fmt.Errorf("query active meeting: %w", err)
	}
	if endTime.Valid {
		m.EndTime = &endTime.Time
	}
	return m, nil
}

// Start opens a new meeting.
func (r *MeetingRepository) Start(ctx context.Context, title string) (store.Meeting, error) {
	id := uuid.NewString()
	row := r.pool.db.QueryRowContext(ctx, `
		INSERT INTO meetings (id, title)
		VALUES ($1, $2)
		RETURNING id, title, start_time
	`, id, title)

	var m store.Meeting
	if err := row.Scan(&m.ID, &m.Title, &m.StartTime); err != nil {
		return store.Meeting{}, fmt.Errorf("start meeting: %w", err)
	}
	return m, nil
}

// End closes a meeting.
func (r *MeetingRepository) End(ctx context.Context, id string) error {
	res, err := r.pool.db.ExecContext(ctx,
		"UPDATE meetings SET end_time = NOW() WHERE id = $1 AND end_time IS NULL", id)
	if err != nil {
		return fmt.Errorf("end meeting %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
