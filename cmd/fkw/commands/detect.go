package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/fkw-sonar/detection"
)

func newDetectCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "detect <image.jpg>...",
		Short: "Run the whistle detector on composite images",
		Long: `Run the external whistle detector on one or more composite images.

The detector command, model and confidence threshold come from the
"detector" section of the config file and can be overridden by flags.

Examples:
  fkw detect images/rec-0001.jpg images/rec-0011.jpg
  fkw detect --conf 0.5 --report results/rec.json images/rec-*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("model") {
				a.config.Detector.ModelPath, _ = cmd.Flags().GetString("model")
			}
			if cmd.Flags().Changed("conf") {
				a.config.Detector.Confidence, _ = cmd.Flags().GetFloat64("conf")
			}

			det, err := a.detector()
			if err != nil {
				return err
			}

			report, err := det.Detect(cmd.Context(), args)
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := detection.SaveReport(report, reportPath); err != nil {
					return err
				}
			}

			return a.output(cmd, report, func(w io.Writer) {
				fmt.Fprintf(w, "Processed %d files, found %d detections\n", len(report.Files), report.TotalDetections)
				for _, f := range report.Files {
					fmt.Fprintf(w, "  %s: %d detection(s)\n", f.FilePath, f.DetectionCount)
					for i, d := range f.Detections {
						fmt.Fprintf(w, "    Detection %d: %s (confidence: %.3f)\n", i+1, d.ClassName, d.Confidence)
					}
				}
			})
		},
	}

	cmd.Flags().String("model", "", "model file (default from config)")
	cmd.Flags().Float64("conf", 0.25, "minimum confidence (default from config)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the JSON report to this file")
	return cmd
}
