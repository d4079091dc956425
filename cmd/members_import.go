package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/imgutil"
	"github.com/kozaktomas/face-attend/internal/store"
)

const importThumbnailSize = 256

var membersImportCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Enroll members from a directory of portrait photos",
	Long: `Enroll members in bulk from a directory of portrait photos.
Each image file becomes one member. The member name is derived from the
file name ("alice_novak.jpg" enrolls "alice novak"). Photos whose face is
already enrolled are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runMembersImport,
}

func init() {
	membersCmd.AddCommand(membersImportCmd)

	membersImportCmd.Flags().Bool("force", false, "Enroll even when a similar face already exists")
	membersImportCmd.Flags().Float64("tolerance", 0.6, "Embedding distance below which a face counts as duplicate")
}

// nameFromFile derives a member name from an image file name.
func nameFromFile(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}

// listImageFiles returns the image files in dir, sorted by name.
func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// bestDetection picks the detection with the highest score, falling back to
// the largest bounding box when scores are missing.
func bestDetection(detections []detect.Detection) detect.Detection {
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Score > best.Score {
			best = d
			continue
		}
		if d.Score == best.Score && d.BBox.Dx()*d.BBox.Dy() > best.BBox.Dx()*best.BBox.Dy() {
			best = d
		}
	}
	return best
}

func runMembersImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	force := mustGetBool(cmd, "force")
	tolerance, err := cmd.Flags().GetFloat64("tolerance")
	if err != nil {
		return err
	}

	files, err := listImageFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no image files found in %s", args[0])
	}

	st, err := requireDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	existing, err := st.members.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading members: %w", err)
	}
	index := store.NewMemberIndex(existing)
	fmt.Printf("Face index built with %d enrolled members\n", index.Len())

	detector := detect.NewClient(cfg.Detector.URL, cfg.Detector.Dim, cfg.Detector.Timeout)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling members"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	enrolled, skipped, failed := 0, 0, 0
	for _, file := range files {
		bar.Add(1)
		name := nameFromFile(file)

		if exists, err := st.members.ExistsByName(ctx, name); err != nil {
			return fmt.Errorf("checking member %q: %w", name, err)
		} else if exists {
			skipped++
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("\nWarning: reading %s: %v\n", file, err)
			failed++
			continue
		}

		detections, err := detector.DetectBytes(ctx, data)
		if err != nil {
			fmt.Printf("\nWarning: detecting faces in %s: %v\n", file, err)
			failed++
			continue
		}
		if len(detections) == 0 {
			fmt.Printf("\nWarning: no face found in %s, skipping\n", file)
			skipped++
			continue
		}

		face := bestDetection(detections)

		if !force && index.Len() > 0 {
			matches, distances, err := index.Search(face.Embedding, 1)
			if err == nil && len(matches) > 0 && distances[0] < tolerance {
				fmt.Printf("\nSkipping %s: face already enrolled as %q (distance %.3f)\n",
					file, matches[0].Name, distances[0])
				skipped++
				continue
			}
		}

		img, err := imgutil.DecodeImage(data)
		if err != nil {
			fmt.Printf("\nWarning: decoding %s: %v\n", file, err)
			failed++
			continue
		}
		crop := imgutil.Resize(imgutil.CropFace(img, face.BBox, 20), importThumbnailSize)
		thumbnail, err := imgutil.EncodeJPEG(crop)
		if err != nil {
			fmt.Printf("\nWarning: encoding thumbnail for %s: %v\n", file, err)
			failed++
			continue
		}

		member := store.Member{
			Name:      name,
			Embedding: face.Embedding,
			Thumbnail: thumbnail,
		}
		id, err := st.members.Create(ctx, member)
		if err != nil {
			fmt.Printf("\nWarning: enrolling %q: %v\n", name, err)
			failed++
			continue
		}
		member.ID = id
		index.Add(member)
		enrolled++
	}
	fmt.Println()

	fmt.Printf("Enrolled %d members (%d skipped, %d failed)\n", enrolled, skipped, failed)
	return nil
}
