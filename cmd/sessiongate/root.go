package main

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "sessiongate",
		Short:        "sessiongate bearer-token authentication service",
		Long:         "Issue, verify and revoke bearer tokens over HTTP, and manage the credential database.",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAddUserCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the sessiongate version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Printf("%s\n", BuildVersion)
			},
		},
	)
	return root
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.LUTC)).WithName("sessiongate")
}
