package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/imgutil"
	"github.com/kozaktomas/face-attend/internal/pipeline"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/web"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition engine and web server",
	Long: `Start the Face Attend engine.
The engine reads frames from the configured capture source, detects and
tracks faces, and serves the recognition API plus the live video stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// loadKnownMembers seeds the identity table from the member store. Members
// without an embedding cannot be matched and are skipped.
func loadKnownMembers(ctx context.Context, members store.MemberStore, table *identity.Table) error {
	all, err := members.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading members: %w", err)
	}

	known := make([]identity.Known, 0, len(all))
	skipped := 0
	for _, m := range all {
		if len(m.Embedding) == 0 {
			skipped++
			continue
		}
		k := identity.Known{
			Name:      m.Name,
			MemberID:  m.ID,
			Embedding: m.Embedding,
		}
		if len(m.Thumbnail) > 0 {
			if img, err := imgutil.DecodeImage(m.Thumbnail); err == nil {
				k.Thumbnail = img
			}
		}
		known = append(known, k)
	}

	table.SeedKnown(known)
	fmt.Printf("Loaded %d known members", len(known))
	if skipped > 0 {
		fmt.Printf(" (%d skipped without embedding)", skipped)
	}
	fmt.Println()
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	table := identity.NewTable()
	if err := loadKnownMembers(ctx, st.members, table); err != nil {
		return err
	}

	profile := cfg.MatchProfile(cfg.Tracking.Profile)
	tracker := identity.NewTracker(table, identity.TrackerConfig{
		Profile: identity.Profile{
			Tolerance:   profile.Tolerance,
			CosineFloor: profile.CosineFloor,
		},
		MaxAge:         cfg.Tracking.MaxAge,
		SweepInterval:  cfg.Tracking.SweepInterval,
		MaxProvisional: cfg.Tracking.MaxProvisional,
	})

	coordinator := identity.NewCoordinator(table, st.members, st.attendance, st.meetings)
	tracker.OnRecognized(coordinator.AutoRecordFunc())

	detector := detect.NewClient(cfg.Detector.URL, cfg.Detector.Dim, cfg.Detector.Timeout)

	var driver *pipeline.Driver
	if cfg.Capture.URL != "" {
		driver = pipeline.NewDriver(
			func() (pipeline.Source, error) { return pipeline.OpenSource(cfg.Capture.URL) },
			detector,
			tracker,
			pipeline.Config{
				MaxFailures: cfg.Capture.MaxFailures,
				RetryDelay:  cfg.Capture.RetryDelay,
				ReinitDelay: cfg.Capture.ReinitDelay,
				Width:       cfg.Capture.Width,
				Height:      cfg.Capture.Height,
			},
		)
		driver.Start()
		fmt.Printf("Capture pipeline started (%s)\n", cfg.Capture.URL)
	} else {
		fmt.Println("CAPTURE_URL not set, running without the capture pipeline")
	}

	engine := &handlers.Engine{
		Table:       table,
		Tracker:     tracker,
		Coordinator: coordinator,
		Driver:      driver,
		Members:     st.members,
		Attendance:  st.attendance,
		Meetings:    st.meetings,
		ReloadMembers: func(ctx context.Context) error {
			return loadKnownMembers(ctx, st.members, table)
		},
	}

	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}

	server := web.NewServer(engine, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if driver != nil {
			driver.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attend on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
