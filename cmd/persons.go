package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"
)

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "Manage detected persons",
}

var personsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persons with their face counts",
	RunE:  runPersonsList,
}

var personsRenameCmd = &cobra.Command{
	Use:   "rename <person-id> <name>",
	Short: "Rename a person (marks it confirmed)",
	Args:  cobra.ExactArgs(2),
	RunE:  runPersonsRename,
}

var personsConfirmCmd = &cobra.Command{
	Use:   "confirm <person-id>",
	Short: "Confirm a person without renaming it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonsConfirm,
}

var personsMergeCmd = &cobra.Command{
	Use:   "merge <source-id> <target-id>",
	Short: "Merge one person into another",
	Long: `Move every face of the source person to the target person and delete
the source. Use this when clustering split one real person in two.`,
	Args: cobra.ExactArgs(2),
	RunE: runPersonsMerge,
}

var personsDeleteCmd = &cobra.Command{
	Use:   "delete <person-id>",
	Short: "Delete a person, returning its faces to the unassigned pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonsDelete,
}

func init() {
	rootCmd.AddCommand(personsCmd)
	personsCmd.AddCommand(personsListCmd)
	personsCmd.AddCommand(personsRenameCmd)
	personsCmd.AddCommand(personsConfirmCmd)
	personsCmd.AddCommand(personsMergeCmd)
	personsCmd.AddCommand(personsDeleteCmd)
}

func parsePersonID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid person id %q", arg)
	}
	return id, nil
}

func runPersonsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.PersonStats(context.Background())
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No persons yet. Run 'photoface scan' and 'photoface cluster' first.")
		return nil
	}

	for _, p := range stats {
		marker := " "
		if p.IsConfirmed {
			marker = "*"
		}
		fmt.Printf("%4d %s %-30s %d faces (%d confirmed)\n",
			p.PersonID, marker, p.Name, p.ConfirmedFaces+p.UnconfirmedFaces, p.ConfirmedFaces)
	}
	fmt.Println("\n* = confirmed person")
	return nil
}

func runPersonsRename(cmd *cobra.Command, args []string) error {
	id, err := parsePersonID(args[0])
	if err != nil {
		return err
	}
	name := norm.NFC.String(strings.TrimSpace(args[1]))
	if name == "" {
		return fmt.Errorf("name must not be empty")
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

	if err := store.RenamePerson(context.Background(), id, name); err != nil {
		return err
	}

	fmt.Printf("Renamed person %d to %s (confirmed)\n", id, name)
	return nil
}

func runPersonsConfirm(cmd *cobra.Command, args []string) error {
	id, err := parsePersonID(args[0])
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

	if err := store.ConfirmPerson(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("Confirmed person %d\n", id)
	return nil
}

func runPersonsMerge(cmd *cobra.Command, args []string) error {
	sourceID, err := parsePersonID(args[0])
	if err != nil {
		return err
	}
	targetID, err := parsePersonID(args[1])
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

	if err := store.MergePersons(context.Background(), sourceID, targetID); err != nil {
		return err
	}

	fmt.Printf("Merged person %d into %d\n", sourceID, targetID)
	return nil
}

func runPersonsDelete(cmd *cobra.Command, args []string) error {
	id, err := parsePersonID(args[0])
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

	if err := store.DeletePerson(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("Deleted person %d, faces returned to the unassigned pool\n", id)
	return nil
}
