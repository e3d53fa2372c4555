package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rotationctl",
		Short:   "rotationctl - drive and inspect rotation-kernel characters",
		Long:    "rotationctl loads a YAML character document and drives it with either rotation driver, validates a document without running it, or serves a local debug HTTP surface over it.",
		Version: Version,
	}

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeDebugCommand())

	return cmd
}
