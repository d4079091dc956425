package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/store"
)

// AttendanceRepository provides PostgreSQL-backed attendance records. The
// UNIQUE(member_id, meeting_id) constraint is the attendance dedup
// authority for the whole engine.
type AttendanceRepository struct {
	pool    *Pool
	members *MemberRepository
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(pool *Pool, members *MemberRepository) *AttendanceRepository {
	return &AttendanceRepository{pool: pool, members: members}
}

// Record writes an attendance mark for a member at a meeting. Returns false
// without error when the member is already recorded for that meeting.
func (r *AttendanceRepository) Record(ctx context.Context, memberID int64, meetingID string) (bool, error) {
	res, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (member_id, meeting_id)
		VALUES ($1, $2)
		ON CONFLICT (member_id, meeting_id) DO NOTHING
	`, memberID, meetingID)
	if err != nil {
		return false, fmt.Errorf("record attendance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record attendance: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := r.members.IncrementMeetingCount(ctx, memberID); err != nil {
		return true, err
	}
	return true, nil
}

// ListForMeeting returns all attendance records for a meeting.
func (r *AttendanceRepository) ListForMeeting(ctx context.Context, meetingID string) ([]store.AttendanceRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, member_id, meeting_id, recorded_at
		FROM attendance
		WHERE meeting_id = $1
		ORDER BY recorded_at
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.MeetingID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
