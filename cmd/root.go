package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/jsphweid/midigen/config"
	"github.com/jsphweid/midigen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "midigen",
	Short: "MIDI corpus conversion and generation",
	Long: `midigen converts MIDI files to and from a JSON event form, builds
token vocabularies and training chunks from a corpus, and generates new
pieces from it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.FromEnv()
		if err != nil {
			return err
		}
		applyEnv(cmd, env)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "development logging")
	flags.StringVarP(&cfg.OutDir, "out", "o", cfg.OutDir, "output directory")
	flags.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "files processed in parallel")
	flags.IntVar(&cfg.SequenceLength, "sequence-length", cfg.SequenceLength, "window length in tokens")
	flags.IntVar(&cfg.Steps, "steps", cfg.Steps, "tokens to generate")
	flags.Float64VarP(&cfg.Temperature, "temperature", "t", cfg.Temperature, "sampling temperature")
	flags.Uint64Var(&cfg.RandomSeed, "seed", cfg.RandomSeed, "random seed, 0 for time based")
	flags.IntVar(&cfg.NgramOrder, "ngram-order", cfg.NgramOrder, "context size of the built-in predictor")
	flags.Float64Var(&cfg.OffsetStep, "offset-step", cfg.OffsetStep, "quarter lengths between generated tokens")
	flags.Uint16Var(&cfg.TicksPerQuarter, "ticks-per-quarter", cfg.TicksPerQuarter, "resolution of written MIDI files")
}

// applyEnv copies environment settings into cfg unless the matching flag
// was given explicitly.
func applyEnv(cmd *cobra.Command, env config.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if !flags.Changed(name) {
			apply()
		}
	}
	set("out", func() { cfg.OutDir = env.OutDir })
	set("workers", func() { cfg.Workers = env.Workers })
	set("sequence-length", func() { cfg.SequenceLength = env.SequenceLength })
	set("steps", func() { cfg.Steps = env.Steps })
	set("temperature", func() { cfg.Temperature = env.Temperature })
	set("seed", func() { cfg.RandomSeed = env.RandomSeed })
	if flags.Lookup("addr") != nil {
		set("addr", func() { cfg.ServeAddr = env.ServeAddr })
	}
	cfg.DynamoEndpoint = env.DynamoEndpoint
	cfg.DynamoRegion = env.DynamoRegion
}

// SetConfig replaces the configuration for callers that drive the
// handlers without going through Execute.
func SetConfig(c config.Config) {
	cfg = c
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
