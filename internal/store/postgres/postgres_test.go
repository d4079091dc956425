//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/store"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.Database{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed float32) []float32 {
	embedding := make([]float32, 128)
	for i := range embedding {
		embedding[i] = seed + float32(i)/128.0
	}
	return embedding
}

func TestMemberRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewMemberRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		id, err := repo.Create(ctx, store.Member{
			Name:      "alice",
			Major:     "physics",
			Age:       21,
			Bio:       "enjoys lasers",
			Embedding: testEmbedding(0.1),
			Thumbnail: []byte{0xff, 0xd8, 0xff},
		})
		if err != nil {
			t.Fatalf("Failed to create member: %v", err)
		}

		m, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("Failed to get member: %v", err)
		}
		if m.Name != "alice" || m.Major != "physics" || m.Age != 21 {
			t.Errorf("unexpected member %+v", m)
		}
		if len(m.Embedding) != 128 {
			t.Errorf("expected 128-dim embedding, got %d", len(m.Embedding))
		}
		if len(m.Thumbnail) == 0 {
			t.Error("expected thumbnail bytes")
		}
	})

	t.Run("ExistsByName", func(t *testing.T) {
		exists, err := repo.ExistsByName(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to check name: %v", err)
		}
		if !exists {
			t.Error("expected alice to exist")
		}

		exists, err = repo.ExistsByName(ctx, "nobody")
		if err != nil {
			t.Fatalf("Failed to check name: %v", err)
		}
		if exists {
			t.Error("expected nobody to be missing")
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		if _, err := repo.Create(ctx, store.Member{Name: "alice", Embedding: testEmbedding(0.2)}); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("LoadAllSorted", func(t *testing.T) {
		if _, err := repo.Create(ctx, store.Member{Name: "bob", Embedding: testEmbedding(0.3)}); err != nil {
			t.Fatalf("Failed to create member: %v", err)
		}

		members, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("Failed to load members: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("expected 2 members, got %d", len(members))
		}
		if members[0].Name != "alice" || members[1].Name != "bob" {
			t.Errorf("expected name order, got %q and %q", members[0].Name, members[1].Name)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := repo.Create(ctx, store.Member{Name: "to-delete", Embedding: testEmbedding(0.4)})
		if err != nil {
			t.Fatalf("Failed to create member: %v", err)
		}

		if err := repo.Delete(ctx, id); err != nil {
			t.Fatalf("Failed to delete member: %v", err)
		}
		if err := repo.Delete(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMeetingAndAttendance(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	members := NewMemberRepository(pool)
	meetings := NewMeetingRepository(pool)
	attendance := NewAttendanceRepository(pool, members)

	memberID, err := members.Create(ctx, store.Member{Name: "alice", Embedding: testEmbedding(0.1)})
	if err != nil {
		t.Fatalf("Failed to create member: %v", err)
	}

	t.Run("NoActiveMeeting", func(t *testing.T) {
		if _, err := meetings.Active(ctx); !errors.Is(err, store.ErrNoActiveMeeting) {
			t.Errorf("expected ErrNoActiveMeeting, got %v", err)
		}
	})

	meeting, err := meetings.Start(ctx, "standup")
	if err != nil {
		t.Fatalf("Failed to start meeting: %v", err)
	}

	t.Run("ActiveMeeting", func(t *testing.T) {
		active, err := meetings.Active(ctx)
		if err != nil {
			t.Fatalf("Failed to get active meeting: %v", err)
		}
		if active.ID != meeting.ID || active.Title != "standup" {
			t.Errorf("unexpected active meeting %+v", active)
		}
	})

	t.Run("RecordDeduplicates", func(t *testing.T) {
		fresh, err := attendance.Record(ctx, memberID, meeting.ID)
		if err != nil {
			t.Fatalf("Failed to record attendance: %v", err)
		}
		if !fresh {
			t.Error("expected first record to be fresh")
		}

		fresh, err = attendance.Record(ctx, memberID, meeting.ID)
		if err != nil {
			t.Fatalf("Failed to record attendance: %v", err)
		}
		if fresh {
			t.Error("expected second record to be deduplicated")
		}

		records, err := attendance.ListForMeeting(ctx, meeting.ID)
		if err != nil {
			t.Fatalf("Failed to list attendance: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("MeetingCountIncrementsOnce", func(t *testing.T) {
		m, err := members.Get(ctx, memberID)
		if err != nil {
			t.Fatalf("Failed to get member: %v", err)
		}
		if m.MeetingCount != 1 {
			t.Errorf("expected meeting count 1, got %d", m.MeetingCount)
		}
	})

	t.Run("EndMeeting", func(t *testing.T) {
		if err := meetings.End(ctx, meeting.ID); err != nil {
			t.Fatalf("Failed to end meeting: %v", err)
		}
		if _, err := meetings.Active(ctx); !errors.Is(err, store.ErrNoActiveMeeting) {
			t.Errorf("expected ErrNoActiveMeeting after end, got %v", err)
		}
		if err := meetings.End(ctx, meeting.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for already ended meeting, got %v", err)
		}
	})
}
