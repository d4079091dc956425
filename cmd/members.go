package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage enrolled members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled members",
	RunE:  runMembersList,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersListCmd)
}

func runMembersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	members, err := st.members.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading members: %w", err)
	}

	if len(members) == 0 {
		fmt.Println("No members enrolled")
		return nil
	}

	fmt.Printf("%-6s %-30s %-20s %s\n", "ID", "NAME", "MAJOR", "MEETINGS")
	for _, m := range members {
		fmt.Printf("%-6d %-30s %-20s %d\n", m.ID, m.Name, m.Major, m.MeetingCount)
	}
	fmt.Printf("\nTotal: %d members\n", len(members))
	return nil
}
