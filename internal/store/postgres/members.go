package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/pgvector/pgvector-go"
)

// MemberRepository provides PostgreSQL-backed member storage.
type MemberRepository struct {
	pool *Pool
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(pool *Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = "id, name, major, age, bio, embedding, thumbnail, meeting_count, created_at"

func scanMember(row interface{ Scan(...any) error }) (store.Member, error) {
	var m store.Member
	var vec *pgvector.Vector
	err := row.Scan(&m.ID, &m.Name, &m.Major, &m.Age, &m.Bio, &vec, &m.Thumbnail, &m.MeetingCount, &m.CreatedAt)
	if err != nil {
		return store.Member{}, err
	}
	if vec != nil {
		m.Embedding = vec.Slice()
	}
	return m, nil
}

// LoadAll returns all members ordered by name.
func (r *MemberRepository) LoadAll(ctx context.Context) ([]store.Member, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []store.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Get retrieves a member by id.
func (r *MemberRepository) Get(ctx context.Context, id int64) (store.Member, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE id = $1
	`, id)

	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Member{}, store.ErrNotFound
	}
	if err != nil {
		return store.Member{}, fmt.Errorf("query member %d: %w", id, err)
	}
	return m, nil
}

// ExistsByName checks whether a member with the display name is enrolled.
func (r *MemberRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM members WHERE name = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check member name: %w", err)
	}
	return exists, nil
}

// Create inserts a new member and returns its id.
func (r *MemberRepository) Create(ctx context.Context, m store.Member) (int64, error) {
	var vec any
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		vec = v
	}

	var id int64
	err := r.pool.db.QueryRowContext(ctx, `
		INSERT INTO members (name, major, age, bio, embedding, thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.Name, m.Major, m.Age, m.Bio, vec, m.Thumbnail).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert member %q: %w", m.Name, err)
	}
	return id, nil
}

// Delete removes a member. Attendance rows cascade.
func (r *MemberRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.db.ExecContext(ctx, "DELETE FROM members WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementMeetingCount bumps the member's attendance counter.
func (r *MemberRepository) IncrementMeetingCount(ctx context.Context, id int64) error {
	_, err := r.pool.db.ExecContext(ctx,
		"UPDATE members SET meeting_count = meeting_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("increment meeting count for %d: %w", id, err)
	}
	return nil
}
