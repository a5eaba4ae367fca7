package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/cli/tui"
	"github.com/smelek/gallerysync/internal/gallery"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Interactively reorder the gallery",
	Long: `Open an interactive view to reorder the gallery. Grab an item with
space, move it with j/k, drop it with space again. Every drop is applied
immediately and saved in the background.`,
	Run: runReorder,
}

func runReorder(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	items, err := c.Client.ListItems(ctx, key)
	if err != nil {
		exitError("failed to list items: %v", err)
	}

	notices := tui.NewChannelNotifier()
	engine := gallery.NewEngine(
		clientOrderStore{client: c.Client},
		remoteResolver{client: c.Client},
		notices,
		gallery.EngineOptions{CommitTimeout: 30 * time.Second},
	)
	if err := engine.Load(ctx, key, items); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load saved order: %v\n", err)
	}

	p := tea.NewProgram(tui.NewModel(engine, notices))
	if _, err := p.Run(); err != nil {
		exitError("%v", err)
	}
}
