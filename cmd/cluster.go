package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photoface/internal/cluster"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group unassigned faces into provisional persons",
	Long: `Cluster all unassigned faces by embedding similarity. Each cluster
becomes a provisional person named Person_<N>, ready to be renamed.
Faces that match nothing stay unassigned for a later pass.`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().Float64("threshold", 0, "Similarity threshold override (0 = use config)")
	clusterCmd.Flags().Int("min-size", 0, "Minimum cluster size override (0 = use config)")
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	threshold := cfg.Cluster.SimilarityThreshold
	if v := mustGetFloat64(cmd, "threshold"); v != 0 {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("threshold must be between 0 and 1, got %v", v)
		}
		threshold = v
	}
	minSize := cfg.Cluster.MinClusterSize
	if v := mustGetInt(cmd, "min-size"); v != 0 {
		if v < 2 {
			return fmt.Errorf("min-size must be at least 2, got %d", v)
		}
		minSize = v
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c := cluster.New(store, threshold, minSize)
	result, err := c.Run(context.Background())
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	fmt.Printf("Considered: %d unassigned faces\n", result.FacesConsidered)
	fmt.Printf("Clusters:   %d new persons\n", result.ClustersCreated)
	fmt.Printf("Assigned:   %d faces\n", result.FacesAssigned)
	fmt.Printf("Noise:      %d faces left unassigned\n", result.NoiseFaces)

	if result.ClustersCreated > 0 {
		fmt.Println("\nUse 'photoface persons list' to review and rename them.")
	}
	return nil
}
