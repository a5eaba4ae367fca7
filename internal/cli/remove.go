package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an item from the gallery",
	Long: `Remove an item from the gallery catalog. The item is also dropped
from the persisted display order.`,
	Args: cobra.ExactArgs(1),
	Run:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	if err := c.Client.RemoveItem(ctx, key, args[0]); err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Removed item %s from gallery '%s'\n", shortID(args[0]), key)
}
