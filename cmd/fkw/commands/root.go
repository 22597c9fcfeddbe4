package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/fkw-sonar/cmd/fkw/internal/config"
	"github.com/RyanBlaney/fkw-sonar/detection"
	"github.com/RyanBlaney/fkw-sonar/logging"
	"github.com/RyanBlaney/fkw-sonar/pipeline"
	"github.com/RyanBlaney/fkw-sonar/spectrogram"
)

const appName = "fkw"

// app carries global flags and the loaded configuration into subcommands
type app struct {
	cfgFile    string
	verbose    bool
	outputJSON bool

	config *config.Config
}

// NewRootCommand builds the fkw command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "False killer whale whistle spectrogram pipeline",
		Long: `fkw turns one-minute hydrophone recordings into composite spectrogram
images and runs a whistle detector over them.

Each recording yields two JPEGs of ten 3-second panels:
  rec.wav -> rec-0001.jpg (0-30 s), rec-0011.jpg (30-60 s)

Configuration is read from ./fkw.yaml when present; keys left out keep
their defaults.

Examples:
  # Render one recording from channel 5
  fkw transform -o images 1706_20170709_034442_942.wav

  # Build a worklist of a deployment and process it
  fkw select -m worklist.csv /data/deploy_1706
  fkw batch -o images worklist.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.outputJSON, "json", false, "output as JSON (for piping)")

	rootCmd.AddCommand(
		newTransformCmd(a),
		newDetectCmd(a),
		newRunCmd(a),
		newSelectCmd(a),
		newBatchCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the command tree with os.Args
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init() error {
	var err error
	if a.cfgFile != "" {
		a.config, err = config.Load(a.cfgFile)
	} else {
		a.config, err = config.LoadIfExists(config.DefaultPath)
	}
	if err != nil {
		return fmt.Errorf("%s config: %w", appName, err)
	}

	if a.verbose {
		a.config.Logging.Level = "debug"
	}
	logging.SetGlobalLogger(a.config.Logging.Logger())
	if a.config.Logging.Color {
		logging.EnableColors()
	}
	return nil
}

func (a *app) transformer() (*spectrogram.Transformer, error) {
	return spectrogram.New(a.config.Spectrogram)
}

func (a *app) detector() (*detection.CommandDetector, error) {
	cfg := a.config.Detector
	return detection.NewCommandDetector(&cfg)
}

func (a *app) runner(channel int) (*pipeline.Runner, error) {
	tr, err := a.transformer()
	if err != nil {
		return nil, err
	}
	det, err := a.detector()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(tr, det,
		pipeline.WithChannel(channel),
		pipeline.WithWorkers(a.config.Pipeline.Workers),
		pipeline.WithReports(a.config.Pipeline.SaveReports),
	), nil
}

// channelFlag returns --channel when given, else the configured default
func (a *app) channelFlag(cmd *cobra.Command) (int, error) {
	if !cmd.Flags().Changed("channel") {
		return a.config.Spectrogram.DefaultChannel, nil
	}
	channel, err := cmd.Flags().GetInt("channel")
	if err != nil {
		return 0, fmt.Errorf("failed to read 'channel' flag: %w", err)
	}
	return channel, nil
}

// output writes v as JSON with --json, otherwise calls text
func (a *app) output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
