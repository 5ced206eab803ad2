package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pantry",
		Short:         "Naked Pantry offline tools",
		Long:          `Classify ingredient listings and inspect aisle hierarchies without a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newClassifyCommand())
	root.AddCommand(newTreeCommand())
	return root
}
