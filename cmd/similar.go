package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photoface/internal/cluster"
)

var similarCmd = &cobra.Command{
	Use:   "similar <face-id>",
	Short: "Find faces similar to a given face",
	Long: `Search the whole library for faces most similar to the given one.
Useful for finding stray detections of a person that clustering missed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", 10, "Maximum number of matches")
	similarCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity (0 = use configured clustering threshold)")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	faceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid face id %q", args[0])
	}
	limit := mustGetInt(cmd, "limit")
	threshold := mustGetFloat64(cmd, "threshold")
	if threshold >= 1 || threshold < 0 {
		return fmt.Errorf("threshold must be in [0, 1)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if threshold == 0 {
		threshold = cfg.Cluster.SimilarityThreshold
	}

	ctx := context.Background()
	matches, err := cluster.FindSimilar(ctx, store, faceID, threshold, limit)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No similar faces found.")
		return nil
	}

	for _, m := range matches {
		face, err := store.GetFace(ctx, m.FaceID)
		if err != nil {
			continue
		}
		person, err := store.GetPerson(ctx, face.PersonID)
		owner := "?"
		if err == nil {
			owner = person.Name
		}
		fmt.Printf("face %6d  similarity %.3f  person %s\n", m.FaceID, m.Similarity, owner)
	}
	return nil
}
