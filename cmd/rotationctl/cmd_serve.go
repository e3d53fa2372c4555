package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kaelbyte/rotation-kernel/builder"
	"github.com/kaelbyte/rotation-kernel/debugserver"
)

func newServeDebugCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "serve-debug <character.yaml>",
		Short:         "Serve a local HTTP inspection surface over a loaded character",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveDebug(cmd, args[0], addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")

	return cmd
}

func serveDebug(cmd *cobra.Command, path, addr string) error {
	character, err := builder.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "document is invalid", err)
	}

	srv := debugserver.New(character)
	fmt.Fprintf(cmd.OutOrStdout(), "✅ serving %s's debug surface on %s (docs at %s/debug/swagger/)\n", character.Name, addr, addr)
	log.Printf("🚀 rotationctl: listening on %s", addr)

	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		return WrapExitError(ExitFailure, "debug server exited", err)
	}
	return nil
}
