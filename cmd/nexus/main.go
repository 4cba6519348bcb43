// Package main provides the CLI entry point for the nexus orchestration
// core: a thin cobra wrapper that wires a Coordinator and its capability
// implementations from a project config and plan file, then gets out of
// the way. The CLI is collaborator scaffolding, not a product surface in
// its own right.
package main

import (
	"fmt"
	"os"

	"github.com/harrison/nexus/internal/cli"
)

// Version is the current version of the nexus binary.
const Version = "2.0.0"

func main() {
	rootCmd := cli.NewRootCommand(Version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
