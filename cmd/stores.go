package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/store/memory"
	"github.com/kozaktomas/face-attend/internal/store/postgres"
)

// stores bundles the persistence backends shared by the CLI commands.
type stores struct {
	members    store.MemberStore
	attendance store.AttendanceStore
	meetings   store.MeetingStore
	close      func() error
}

// openStores connects to PostgreSQL when DATABASE_URL is set and falls back
// to in-memory stores otherwise. The in-memory fallback keeps the engine
// usable for demos without a database, nothing survives a restart.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.URL == "" {
		fmt.Println("DATABASE_URL not set, using in-memory stores (no persistence)")
		return &stores{
			members:    memory.NewMemberStore(),
			attendance: memory.NewAttendanceStore(),
			meetings:   memory.NewMeetingStore(),
			close:      func() error { return nil },
		}, nil
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	memberRepo := postgres.NewMemberRepository(pool)
	return &stores{
		members:    memberRepo,
		attendance: postgres.NewAttendanceRepository(pool, memberRepo),
		meetings:   postgres.NewMeetingRepository(pool),
		close:      pool.Close,
	}, nil
}

// requireDatabase opens stores but refuses the in-memory fallback. Data
// commands only make sense against a real database.
func requireDatabase(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return openStores(ctx, cfg)
}
