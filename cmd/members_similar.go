package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/store"
)

var membersSimilarCmd = &cobra.Command{
	Use:   "similar <image>",
	Short: "Find enrolled members similar to a face photo",
	Long: `Find the enrolled members whose reference face is closest to the face
in the given photo. Useful to check whether someone is already enrolled
before importing them.`,
	Args: cobra.ExactArgs(1),
	RunE: runMembersSimilar,
}

func init() {
	membersCmd.AddCommand(membersSimilarCmd)

	membersSimilarCmd.Flags().Int("count", 5, "Number of matches to show")
}

func runMembersSimilar(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	count := mustGetInt(cmd, "count")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	detector := detect.NewClient(cfg.Detector.URL, cfg.Detector.Dim, cfg.Detector.Timeout)
	detections, err := detector.DetectBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	if len(detections) == 0 {
		return fmt.Errorf("no face found in %s", args[0])
	}
	face := bestDetection(detections)

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	members, err := st.members.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading members: %w", err)
	}

	index := store.NewMemberIndex(members)
	if index.Len() == 0 {
		fmt.Println("No members with embeddings enrolled")
		return nil
	}

	matches, distances, err := index.Search(face.Embedding, count)
	if err != nil {
		return fmt.Errorf("searching member index: %w", err)
	}

	fmt.Printf("%-6s %-30s %s\n", "ID", "NAME", "DISTANCE")
	for i, m := range matches {
		fmt.Printf("%-6d %-30s %.3f\n", m.ID, m.Name, distances[i])
	}
	return nil
}
