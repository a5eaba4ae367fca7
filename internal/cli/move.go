package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/gallery"
)

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move an item to a new position",
	Long: `Move the item at position <from> to position <to>. The item is
removed first, then inserted, so the target index refers to the list
after removal.

Examples:
  gallery move 0 2    # [A,B,C,D] becomes [B,C,A,D]`,
	Args: cobra.ExactArgs(2),
	Run:  runMove,
}

func runMove(cmd *cobra.Command, args []string) {
	from, err := strconv.Atoi(args[0])
	if err != nil {
		exitError("invalid from position: %s", args[0])
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		exitError("invalid to position: %s", args[1])
	}

	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	engine := loadEngine(ctx, c, key)
	if err := engine.ApplyMove(from, to); err != nil {
		switch {
		case errors.Is(err, gallery.ErrPermissionDenied):
			exitError("you do not have permission to edit gallery '%s'", key)
		case errors.Is(err, gallery.ErrIndexOutOfRange):
			exitError("position out of range (gallery has %d items)", len(engine.Items()))
		default:
			exitError("%v", err)
		}
	}
	engine.Wait()

	for i, it := range engine.Items() {
		marker := "  "
		if i == to {
			marker = "->"
		}
		fmt.Printf("%s %3d  %s  %s\n", marker, i, shortID(it.ID), it.URL)
	}
}
