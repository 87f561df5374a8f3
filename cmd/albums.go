package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "Manage per-person export albums",
}

var albumsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured albums",
	RunE:  runAlbumsList,
}

var albumsSetCmd = &cobra.Command{
	Use:   "set <person-id> <output-path>",
	Short: "Set a person's export destination",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlbumsSet,
}

var albumsRemoveCmd = &cobra.Command{
	Use:   "remove <person-id>",
	Short: "Remove a person's export destination",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsRemove,
}

func init() {
	rootCmd.AddCommand(albumsCmd)
	albumsCmd.AddCommand(albumsListCmd)
	albumsCmd.AddCommand(albumsSetCmd)
	albumsCmd.AddCommand(albumsRemoveCmd)
}

func runAlbumsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	albums, err := store.ListAlbums(context.Background())
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		fmt.Println("No albums configured. Use 'photoface albums set <person-id> <path>'.")
		return nil
	}

	for _, album := range albums {
		fmt.Printf("person %d -> %s\n", album.PersonID, album.OutputPath)
	}
	return nil
}

func runAlbumsSet(cmd *cobra.Command, args []string) error {
	personID, err := parsePersonID(args[0])
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
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

	if err := store.SetAlbum(context.Background(), personID, abs); err != nil {
		return err
	}

	fmt.Printf("Album for person %d set to %s\n", personID, abs)
	return nil
}

func runAlbumsRemove(cmd *cobra.Command, args []string) error {
	personID, err := parsePersonID(args[0])
	if err != nil {
		return err
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

	if err := store.RemoveAlbum(context.Background(), personID); err != nil {
		return err
	}

	fmt.Printf("Album for person %d removed\n", personID)
	return nil
}
