package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newTransformCmd(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "transform <recording.wav>",
		Short: "Render a recording into two composite spectrogram images",
		Long: `Render a one-minute recording into two composite spectrogram JPEGs.

The recording must last between 58 and 62 seconds (exclusive). The images
are written to the output directory, which is created if missing.

Examples:
  fkw transform -o images 1706_20170709_034442_942.wav
  fkw transform --channel 0 -o images mono.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := a.channelFlag(cmd)
			if err != nil {
				return err
			}

			tr, err := a.transformer()
			if err != nil {
				return err
			}

			res, err := tr.Transform(cmd.Context(), args[0], outputDir, channel)
			if err != nil {
				return err
			}

			return a.output(cmd, res, func(w io.Writer) {
				for _, p := range res.Paths {
					fmt.Fprintln(w, p)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "images", "directory for the composite images")
	cmd.Flags().Int("channel", 5, "channel of multi-channel recordings (default from config)")
	return cmd
}
