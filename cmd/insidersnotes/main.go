// Package main provides the entry point for the insidersnotes CLI.
package main

import (
	"fmt"
	"os"

	"github.com/DovieW/vscode-insiders-release-notes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
