package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photoface/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder-id]",
	Short: "Scan folders and detect faces",
	Long: `Scan registered folders for images, detect faces using the configured
detection service, and store the results. Already processed images are
skipped, so an interrupted scan can simply be re-run.

Without an argument all registered folders are scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("retry-errors", false, "Re-scan images that previously failed")
}

func runScan(cmd *cobra.Command, args []string) error {
	var folderID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid folder id %q", args[0])
		}
		folderID = id
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

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, finishing current image...")
		cancel()
	}()

	var bar *progressbar.ProgressBar
	s := scanner.New(store, newDetector(cfg), cfg.Scan.MinFaceConfidence)
	result, err := s.Scan(ctx, scanner.Options{
		FolderID:    folderID,
		RetryErrors: mustGetBool(cmd, "retry-errors"),
		OnProgress: func(info scanner.ProgressInfo) {
			if bar == nil {
				bar = progressbar.NewOptions(info.Total,
					progressbar.OptionSetDescription("Scanning"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("images"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
				)
			}
			_ = bar.Set(info.Done)
		},
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Println()
	if result.Cancelled {
		fmt.Println("Scan cancelled. Run again to resume where it stopped.")
	}
	fmt.Printf("Processed: %d images\n", result.Processed)
	fmt.Printf("Skipped:   %d already completed\n", result.Skipped)
	fmt.Printf("Faces:     %d detected\n", result.FacesFound)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors: %d\n", len(result.Errors))
		for _, err := range result.Errors {
			fmt.Printf("  - %v\n", err)
		}
	}
	return nil
}
