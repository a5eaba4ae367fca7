package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List gallery items in display order",
	Long: `List the gallery's items in their reconciled display order: the
saved order first, then items the order does not mention yet.`,
	Run: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listIDs, "ids", false, "Print full item IDs only")
}

var listIDs bool

func runList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	engine := loadEngine(ctx, c, key)
	items := engine.Items()

	if listIDs {
		for _, it := range items {
			fmt.Println(it.ID)
		}
		return
	}

	if len(items) == 0 {
		fmt.Printf("Gallery '%s' has no items.\n", key)
		return
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	bold.Printf("Gallery '%s' (%d items)", key, len(items))
	if engine.IsAdmin() {
		color.New(color.FgGreen).Printf("  [admin]")
	}
	fmt.Println()

	for i, it := range items {
		fmt.Printf("%3d  ", i)
		cyan.Printf("%s", shortID(it.ID))
		fmt.Printf("  %s", it.URL)
		switch {
		case it.IsBefore && it.IsAfter:
			yellow.Printf("  [before+after]")
		case it.IsBefore:
			yellow.Printf("  [before]")
		case it.IsAfter:
			yellow.Printf("  [after]")
		}
		fmt.Println()
	}
}
