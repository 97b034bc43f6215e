// Package cmd defines the unbundler commands.
package cmd

import (
	"github.com/bjaus/flatjson/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// New returns the root command of the unbundler.
func New() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "unbundler",
		Short:        "Flatten JSON documents into tables.",
		Long:         "Flatten JSON documents into tables, either one file at a time or as a worker that converts documents announced on an SQS queue.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP(logging.Flag, logging.FlagShorthand, logging.DefaultCLILevel, logging.FlagUsage)

	cmd.AddCommand(newFlattenCmd(fs))
	cmd.AddCommand(newWorkerCmd(fs))
	return cmd
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
