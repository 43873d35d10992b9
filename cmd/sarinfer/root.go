package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sarinfer",
		Short:         "Model artifact control plane",
		Long:          "sarinfer registers model versions, backs their folders up to S3 and restores them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStartCmd(),
		newLoadModelCmd(),
		newListModelsCmd(),
		newRegisterModelCmd(),
		newBackupModelCmd(),
		newRestoreModelCmd(),
	)
	return root
}
