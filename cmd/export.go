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

	"github.com/kozaktomas/photoface/internal/exporter"
)

var exportCmd = &cobra.Command{
	Use:   "export [person-id]",
	Short: "Export confirmed persons' photos into per-person folders",
	Long: `Copy the photos of confirmed persons into their album directories.
Each album gets the person's solo shots at the top level and group
shots under with_friends/. Existing files are never overwritten.

Without an argument every confirmed person with an album is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("output", "", "Output directory for a person without an album")
}

func runExport(cmd *cobra.Command, args []string) error {
	var personID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid person id %q", args[0])
		}
		personID = id
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outputPath := mustGetString(cmd, "output")
	if outputPath == "" {
		outputPath = cfg.Export.OutputPath
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, finishing current file...")
		cancel()
	}()

	var bar *progressbar.ProgressBar
	e := exporter.New(store)
	result, err := e.Run(ctx, exporter.Options{
		PersonID:   personID,
		OutputPath: outputPath,
		OnProgress: func(info exporter.ProgressInfo) {
			if bar == nil {
				bar = progressbar.NewOptions(info.Total,
					progressbar.OptionSetDescription("Exporting"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("photos"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionFullWidth(),
				)
			}
			_ = bar.Set(info.Done)
		},
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Println()
	if result.Cancelled {
		fmt.Println("Export cancelled.")
	}
	for _, p := range result.Persons {
		fmt.Printf("%s: %d solo, %d with friends\n", p.Name, p.SoloCopied, p.WithCopied)
		for _, err := range p.Errors {
			fmt.Printf("  - %v\n", err)
		}
	}
	fmt.Printf("Total copied: %d photos\n", result.Copied)
	return nil
}
