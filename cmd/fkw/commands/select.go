package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/fkw-sonar/pipeline"
)

func newSelectCmd(a *app) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "select <directory>",
		Short: "Add the recordings under a directory to a CSV worklist",
		Long: `Walk a directory for .wav files and add them to a CSV worklist.

Recordings already in the worklist keep their flags, so select can be
rerun as new recordings arrive.

Examples:
  fkw select -m worklist.csv /data/deploy_1706`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := pipeline.Select(args[0])
			if err != nil {
				return err
			}

			manifest, err := pipeline.ReadManifest(manifestPath)
			if errors.Is(err, os.ErrNotExist) {
				manifest, err = &pipeline.Manifest{}, nil
			}
			if err != nil {
				return err
			}

			added := manifest.Merge(paths)
			if err := pipeline.WriteManifest(manifest, manifestPath); err != nil {
				return err
			}

			result := map[string]any{
				"manifest": manifestPath,
				"found":    len(paths),
				"added":    added,
				"pending":  len(manifest.Pending()),
			}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d recordings found, %d added, %d pending\n",
					manifestPath, len(paths), added, len(manifest.Pending()))
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "worklist.csv", "CSV worklist to create or extend")
	return cmd
}
