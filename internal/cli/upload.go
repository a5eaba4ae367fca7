package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smelek/gallerysync/internal/remote"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a media file to the gallery",
	Long: `Upload a media file to the server's media store. The stored name is
generated from a timestamp and random token, so repeat uploads never
overwrite each other.

With --add, the uploaded file is also added to the gallery catalog.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpload,
}

var (
	uploadAdd    bool
	uploadBefore bool
	uploadAfter  bool
)

func init() {
	uploadCmd.Flags().BoolVar(&uploadAdd, "add", false, "Also add the upload as a catalog item")
	uploadCmd.Flags().BoolVar(&uploadBefore, "before", false, "With --add: mark as a 'before' phase photo")
	uploadCmd.Flags().BoolVar(&uploadAfter, "after", false, "With --add: mark as an 'after' phase photo")
}

func runUpload(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	key := c.galleryKey()

	f, err := os.Open(args[0])
	if err != nil {
		exitError("%v", err)
	}
	defer f.Close()

	uploaded, err := c.Client.UploadMedia(ctx, key, filepath.Base(args[0]), f)
	if err != nil {
		exitError("upload failed: %v", err)
	}
	fmt.Printf("Uploaded %s\n", uploaded.Path)
	fmt.Printf("URL: %s\n", uploaded.URL)

	if !uploadAdd {
		return
	}

	item, err := c.Client.AddItem(ctx, key, &remote.ItemCreateRequest{
		URL:      uploaded.URL,
		IsBefore: uploadBefore,
		IsAfter:  uploadAfter,
	})
	if err != nil {
		exitError("uploaded but failed to add catalog item: %v", err)
	}
	fmt.Printf("Added item %s to gallery '%s'\n", shortID(item.ID), key)
}
