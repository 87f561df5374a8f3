package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Manage registered photo folders",
}

var foldersAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a folder for scanning",
	Long: `Register a photo folder. Subdirectories are registered automatically
during the first scan. Re-registering an existing path is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runFoldersAdd,
}

var foldersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered folders with their scan progress",
	RunE:  runFoldersList,
}

var foldersRemoveCmd = &cobra.Command{
	Use:   "remove <folder-id>",
	Short: "Remove a folder and all of its scanned data",
	Args:  cobra.ExactArgs(1),
	RunE:  runFoldersRemove,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
	foldersCmd.AddCommand(foldersAddCmd)
	foldersCmd.AddCommand(foldersListCmd)
	foldersCmd.AddCommand(foldersRemoveCmd)
}

func runFoldersAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("checking path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", abs)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.AddFolder(context.Background(), abs)
	if err != nil {
		return fmt.Errorf("registering folder: %w", err)
	}

	fmt.Printf("Registered folder %d: %s\n", id, abs)
	return nil
}

func runFoldersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	folders, err := store.ListFolders(ctx)
	if err != nil {
		return err
	}

	if len(folders) == 0 {
		fmt.Println("No folders registered. Use 'photoface folders add <path>' first.")
		return nil
	}

	for _, folder := range folders {
		counts, err := store.FolderImageCounts(ctx, folder.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%4d  %s\n", folder.ID, folder.Path)
		fmt.Printf("      %d images (%d completed, %d pending, %d errors)\n",
			counts.Total(), counts.Completed, counts.Pending+counts.Processing, counts.Error)
	}
	return nil
}

func runFoldersRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid folder id %q", args[0])
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

	if err := store.RemoveFolder(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("Removed folder %d (images and faces deleted)\n", id)
	return nil
}
