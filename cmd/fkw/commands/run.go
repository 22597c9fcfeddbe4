package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <recording.wav>",
		Short: "Transform a recording, then run the detector on its images",
		Long: `Transform a recording and pass both images to the detector.

The detector is not started when the transform fails.

Examples:
  fkw run -o images 1706_20170709_034442_942.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := a.channelFlag(cmd)
			if err != nil {
				return err
			}

			runner, err := a.runner(channel)
			if err != nil {
				return err
			}

			outcome, err := runner.Run(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}

			return a.output(cmd, outcome, func(w io.Writer) {
				for _, p := range outcome.Transform.Paths {
					fmt.Fprintln(w, p)
				}
				fmt.Fprintf(w, "%d detection(s)\n", outcome.Detections())
				if outcome.ReportPath != "" {
					fmt.Fprintf(w, "Report: %s\n", outcome.ReportPath)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "images", "directory for images and reports")
	cmd.Flags().Int("channel", 5, "channel of multi-channel recordings (default from config)")
	return cmd
}
