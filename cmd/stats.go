package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photoface/internal/database"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	RunE:  runStats,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persisted settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted settings",
	RunE:  runSettingsList,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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
	images, err := store.CountImages(ctx)
	if err != nil {
		return err
	}
	completed, err := store.CountImagesByStatus(ctx, database.StatusCompleted)
	if err != nil {
		return err
	}
	failed, err := store.CountImagesByStatus(ctx, database.StatusError)
	if err != nil {
		return err
	}
	faces, err := store.CountFaces(ctx)
	if err != nil {
		return err
	}
	persons, err := store.PersonStats(ctx)
	if err != nil {
		return err
	}

	confirmed := 0
	for _, p := range persons {
		if p.IsConfirmed {
			confirmed++
		}
	}

	fmt.Printf("Folders:  %d\n", len(folders))
	fmt.Printf("Images:   %d (%d completed, %d errors)\n", images, completed, failed)
	fmt.Printf("Faces:    %d\n", faces)
	fmt.Printf("Persons:  %d (%d confirmed)\n", len(persons), confirmed)
	return nil
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	settings, err := store.AllSettings(context.Background())
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		fmt.Println("No settings persisted.")
		return nil
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%s = %s\n", key, settings[key])
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetSetting(context.Background(), args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}
