package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/remote"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add an item to the gallery catalog",
	Long: `Add an item to the gallery catalog. New items appear at the end of
the display order until they are reordered.`,
	Args: cobra.ExactArgs(1),
	Run:  runAdd,
}

var (
	addBefore bool
	addAfter  bool
	addID     string
)

func init() {
	addCmd.Flags().BoolVar(&addBefore, "before", false, "Mark as a 'before' phase photo")
	addCmd.Flags().BoolVar(&addAfter, "after", false, "Mark as an 'after' phase photo")
	addCmd.Flags().StringVar(&addID, "id", "", "Explicit item ID (defaults to a generated UUID)")
}

func runAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	item, err := c.Client.AddItem(ctx, key, &remote.ItemCreateRequest{
		ID:       addID,
		URL:      args[0],
		IsBefore: addBefore,
		IsAfter:  addAfter,
	})
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Added item %s to gallery '%s'\n", shortID(item.ID), key)
}
