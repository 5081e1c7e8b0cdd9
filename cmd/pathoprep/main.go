// Package main provides the pathoprep CLI entrypoint.
package main

import (
	"os"

	"github.com/ruipath/pathoprep/internal/cli"

	// Register the preprocess operator.
	_ "github.com/ruipath/pathoprep/internal/preprocess"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
