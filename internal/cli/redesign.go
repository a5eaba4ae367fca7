package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/relay"
)

var redesignCmd = &cobra.Command{
	Use:   "redesign <image>",
	Short: "Generate an AI redesign of a room photo",
	Long: `Send a room photo through the server's AI relay: the room structure
is described by a vision model, then re-rendered in the requested style.

Run 'gallery redesign --styles' to list the accepted styles.`,
	Run: runRedesign,
}

var (
	redesignStyle  string
	redesignOut    string
	redesignStyles bool
)

func init() {
	redesignCmd.Flags().StringVarP(&redesignStyle, "style", "s", "", "Redesign style (required)")
	redesignCmd.Flags().StringVarP(&redesignOut, "output", "o", "", "Write the generated image to a file")
	redesignCmd.Flags().BoolVar(&redesignStyles, "styles", false, "List the accepted styles and exit")
}

func runRedesign(cmd *cobra.Command, args []string) {
	if redesignStyles {
		for _, s := range relay.AllowedStyles {
			fmt.Println(s)
		}
		return
	}

	if len(args) != 1 {
		exitError("image file required")
	}
	if !relay.StyleAllowed(redesignStyle) {
		exitError("invalid style %q; run 'gallery redesign --styles' for the accepted list", redesignStyle)
	}

	dataURL, err := encodeImage(args[0])
	if err != nil {
		exitError("%v", err)
	}

	ctx := context.Background()
	c := initContext()

	fmt.Printf("Requesting %s redesign...\n", redesignStyle)
	resp, err := c.Client.Redesign(ctx, &relay.Request{ImageBase64: dataURL, Style: redesignStyle})
	if err != nil {
		exitError("%v", err)
	}

	color.New(color.Bold).Printf("Room structure: ")
	fmt.Println(resp.Description)

	if redesignOut == "" {
		fmt.Printf("Image: %s\n", truncateDataURL(resp.ImageURL))
		return
	}

	if err := writeImage(redesignOut, resp.ImageURL); err != nil {
		exitError("%v", err)
	}
	fmt.Printf("Wrote %s\n", redesignOut)
}

var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// encodeImage reads a file and returns it as a base64 image data URL.
func encodeImage(path string) (string, error) {
	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q (JPEG, PNG, WebP, or GIF)", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	if len(dataURL) >= relay.MaxImageBytes {
		return "", fmt.Errorf("image too large: encoded payload must be under %d bytes", relay.MaxImageBytes)
	}
	return dataURL, nil
}

// writeImage decodes a data:image URL to a file, or records a plain URL.
func writeImage(path, imageURL string) error {
	_, b64, found := strings.Cut(imageURL, ";base64,")
	if !found {
		// Not a data URL; save the reference instead of the bytes.
		return os.WriteFile(path, []byte(imageURL+"\n"), 0644)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("decode generated image: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func truncateDataURL(s string) string {
	if len(s) > 80 {
		return s[:80] + fmt.Sprintf("... (%d bytes, use -o to save)", len(s))
	}
	return s
}
