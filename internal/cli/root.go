// Package cli assembles the nexus binary's cobra command tree. It
// exists purely to wire a Coordinator and its capability implementations
// from a project config and plan file on disk; it carries no
// orchestration logic of its own.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the nexus root command with its run and status
// subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "nexus",
		Short:   "Drive the autonomous multi-agent orchestration core",
		Version: version,
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())
	return root
}
