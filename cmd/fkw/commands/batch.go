package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "batch <worklist.csv>",
		Short: "Process every pending recording of a worklist",
		Long: `Transform and detect every recording of a worklist not yet inferred.

The worklist is rewritten after each recording with its transformed and
inferred flags, the detection count and a message, so an interrupted batch
resumes where it stopped. Failed recordings do not stop the batch.

Examples:
  fkw batch -o images worklist.csv
  fkw batch --workers 4 -o images worklist.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				a.config.Pipeline.Workers, _ = cmd.Flags().GetInt("workers")
				if err := a.config.Pipeline.Validate(); err != nil {
					return err
				}
			}

			channel, err := a.channelFlag(cmd)
			if err != nil {
				return err
			}

			runner, err := a.runner(channel)
			if err != nil {
				return err
			}

			summary, err := runner.RunManifestFile(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}

			return a.output(cmd, summary, func(w io.Writer) {
				fmt.Fprintf(w, "%d recordings: %d processed, %d failed, %d already done\n",
					summary.Total, summary.Processed, summary.Failed, summary.Skipped)
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "images", "directory for images and reports")
	cmd.Flags().Int("channel", 5, "channel of multi-channel recordings (default from config)")
	cmd.Flags().Int("workers", 1, "recordings processed at once (default from config)")
	return cmd
}
