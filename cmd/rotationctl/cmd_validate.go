package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaelbyte/rotation-kernel/builder"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <character.yaml>",
		Short:         "Load a character document without driving it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, path string) error {
	character, err := builder.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "document is invalid", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: %d resource(s), %d operation(s), %d state(s)\n",
		character.Name, len(character.ResourceIDs()), len(character.Operations()), len(character.States.All()))
	return nil
}
