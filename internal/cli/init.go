package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/config"
	"github.com/smelek/gallerysync/internal/models"
	"github.com/smelek/gallerysync/internal/remote"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a gallery workspace",
	Long: `Initialize a gallery workspace in the current directory.
This creates a .gallery directory holding the server URL, bearer token,
and default gallery key.`,
	Run: runInit,
}

var (
	initServerURL string
	initToken     string
	initKey       string
)

func init() {
	initCmd.Flags().StringVar(&initServerURL, "server", "http://localhost:8484", "Gallery server URL")
	initCmd.Flags().StringVar(&initToken, "token", "", "Bearer token for the gallery server")
	initCmd.Flags().StringVar(&initKey, "key", models.PortfolioKey, "Default gallery key")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Check if already initialized
	if _, err := config.FindGalleryRoot(); err == nil {
		exitError("gallery workspace already exists")
	}

	fmt.Printf("Initializing gallery workspace...\n")
	fmt.Printf("Server URL: %s\n", initServerURL)

	// Probe the server and resolve the token's capability
	client := remote.NewHTTPClient(initServerURL, initToken)
	ident, err := client.Identity(ctx)
	if err != nil {
		exitError("failed to connect to gallery server: %v", err)
	}
	switch {
	case ident.UserID == "":
		fmt.Printf("Connected anonymously (read-only)\n")
	case ident.IsAdmin:
		fmt.Printf("Authenticated as %s (admin)\n", ident.UserID)
	default:
		fmt.Printf("Authenticated as %s\n", ident.UserID)
	}

	cfg, err := config.Initialize(initServerURL, initKey)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}
	if initToken != "" {
		cfg.Token = initToken
		if err := cfg.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	fmt.Printf("\nInitialized gallery workspace in .gallery/\n")
	fmt.Printf("Default gallery: %s\n", initKey)
}
