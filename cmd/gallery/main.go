// Command gallery is the gallery management CLI.
package main

import (
	"os"

	"github.com/smelek/gallerysync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
