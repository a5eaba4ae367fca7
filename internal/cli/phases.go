package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var phasesCmd = &cobra.Command{
	Use:   "phases <id>",
	Short: "Set an item's before/after phase flags",
	Long: `Set an item's renovation-phase flags. Both flags are written as
given; omitting a flag clears it.

Examples:
  gallery phases a1b2c3d4 --before
  gallery phases a1b2c3d4 --before --after
  gallery phases a1b2c3d4            # clear both flags`,
	Args: cobra.ExactArgs(1),
	Run:  runPhases,
}

var (
	phaseBefore bool
	phaseAfter  bool
)

func init() {
	phasesCmd.Flags().BoolVar(&phaseBefore, "before", false, "Mark as a 'before' phase photo")
	phasesCmd.Flags().BoolVar(&phaseAfter, "after", false, "Mark as an 'after' phase photo")
}

func runPhases(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	if err := c.Client.SetItemPhases(ctx, key, args[0], phaseBefore, phaseAfter); err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Updated phases for %s (before=%v after=%v)\n", shortID(args[0]), phaseBefore, phaseAfter)
}
