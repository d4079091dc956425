package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/store"
)

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Manage meeting sessions",
}

var meetingsStartCmd = &cobra.Command{
	Use:   "start <title>",
	Short: "Open a new meeting session",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeetingsStart,
}

var meetingsEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Close the active meeting session",
	RunE:  runMeetingsEnd,
}

var meetingsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active meeting session",
	RunE:  runMeetingsActive,
}

func init() {
	rootCmd.AddCommand(meetingsCmd)
	meetingsCmd.AddCommand(meetingsStartCmd)
	meetingsCmd.AddCommand(meetingsEndCmd)
	meetingsCmd.AddCommand(meetingsActiveCmd)
}

func runMeetingsStart(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if _, err := st.meetings.Active(ctx); err == nil {
		return fmt.Errorf("a meeting is already active, end it first")
	} else if !errors.Is(err, store.ErrNoActiveMeeting) {
		return fmt.Errorf("checking active meeting: %w", err)
	}

	meeting, err := st.meetings.Start(ctx, args[0])
	if err != nil {
		return fmt.Errorf("starting meeting: %w", err)
	}

	fmt.Printf("Started meeting %q (%s)\n", meeting.Title, meeting.ID)
	return nil
}

func runMeetingsEnd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	meeting, err := st.meetings.Active(ctx)
	if errors.Is(err, store.ErrNoActiveMeeting) {
		return fmt.Errorf("no active meeting")
	}
	if err != nil {
		return fmt.Errorf("checking active meeting: %w", err)
	}

	if err := st.meetings.End(ctx, meeting.ID); err != nil {
		return fmt.Errorf("ending meeting: %w", err)
	}

	records, err := st.attendance.ListForMeeting(ctx, meeting.ID)
	if err != nil {
		return fmt.Errorf("loading attendance: %w", err)
	}

	fmt.Printf("Ended meeting %q (%s)\n", meeting.Title, meeting.ID)
	fmt.Printf("Attendance: %d members\n", len(records))
	return nil
}

func runMeetingsActive(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	meeting, err := st.meetings.Active(ctx)
	if errors.Is(err, store.ErrNoActiveMeeting) {
		fmt.Println("No active meeting")
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking active meeting: %w", err)
	}

	fmt.Printf("Active meeting: %q (%s)\n", meeting.Title, meeting.ID)
	fmt.Printf("  Started: %s\n", meeting.StartTime.Format(time.RFC3339))

	records, err := st.attendance.ListForMeeting(ctx, meeting.ID)
	if err != nil {
		return fmt.Errorf("loading attendance: %w", err)
	}
	fmt.Printf("  Attendance so far: %d members\n", len(records))
	return nil
}
