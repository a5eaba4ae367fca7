// Package cli implements the command-line interface for the gallery tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/config"
	"github.com/smelek/gallerysync/internal/gallery"
	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/remote"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Client remote.Client
}

// initContext loads the workspace config and builds the server client.
// Reads go through the retry decorator; order commits stay single-shot.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}
	if cfg.ServerURL == "" {
		exitError("no server_url configured; run 'gallery init' first")
	}

	client := remote.NewRetryClient(remote.NewHTTPClient(cfg.ServerURL, cfg.Token), nil)
	return &cmdContext{Config: cfg, Client: client}
}

// galleryKey resolves the gallery to operate on: flag, then config, then the
// portfolio default.
func (c *cmdContext) galleryKey() string {
	if keyFlag != "" {
		return keyFlag
	}
	if c.Config.GalleryKey != "" {
		return c.Config.GalleryKey
	}
	return models.PortfolioKey
}

// clientOrderStore adapts the server client to the engine's OrderStore. The
// actor and timestamp are assigned server-side.
type clientOrderStore struct {
	client remote.Client
}

func (s clientOrderStore) GetOrder(ctx context.Context, galleryKey string) (*models.OrderRecord, error) {
	return s.client.GetOrder(ctx, galleryKey)
}

func (s clientOrderStore) UpsertOrder(ctx context.Context, galleryKey string, order []string, _ string, _ time.Time) error {
	return s.client.PutOrder(ctx, galleryKey, order)
}

// remoteResolver resolves the admin capability from the server. Fail closed:
// an unreachable server never grants edit access.
type remoteResolver struct {
	client remote.Client
}

func (r remoteResolver) Resolve(ctx context.Context) bool {
	ident, err := r.client.Identity(ctx)
	if err != nil || ident == nil {
		return false
	}
	return ident.IsAdmin
}

// printNotifier renders engine notices on stderr with a level color.
type printNotifier struct{}

func (printNotifier) Notify(n models.Notice) {
	switch n.Level {
	case models.NoticeSuccess:
		color.New(color.FgGreen).Fprintf(os.Stderr, "%s\n", n.Message)
	case models.NoticeError:
		color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", n.Message)
	default:
		fmt.Fprintf(os.Stderr, "%s\n", n.Message)
	}
}

// loadEngine fetches the gallery catalog and builds a loaded sync engine.
func loadEngine(ctx context.Context, c *cmdContext, key string) *gallery.Engine {
	items, err := c.Client.ListItems(ctx, key)
	if err != nil {
		exitError("failed to list items: %v", err)
	}

	engine := gallery.NewEngine(
		clientOrderStore{client: c.Client},
		remoteResolver{client: c.Client},
		printNotifier{},
		gallery.EngineOptions{CommitTimeout: 30 * time.Second},
	)
	if err := engine.Load(ctx, key, items); err != nil {
		// Non-fatal: the engine fell back to the default order.
		fmt.Fprintf(os.Stderr, "warning: could not load saved order: %v\n", err)
	}
	return engine
}

var keyFlag string

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Gallery ordering and synchronization",
	Long: `gallery is a CLI for managing a portfolio gallery: item catalog,
persisted display order with optimistic reordering, media uploads,
and AI-assisted room redesigns via the server relay.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "gallery", "g", "", "Gallery key (default from config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(phasesCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(redesignCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(adminCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
