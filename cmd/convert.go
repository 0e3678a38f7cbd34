package cmd

import (
	"context"

	"github.com/jsphweid/midigen/batch"
	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/file"
	"github.com/jsphweid/midigen/midi"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var maxFiles int

func init() {
	toJSONCmd.Flags().IntVar(&maxFiles, "max", 0, "convert at most this many files")
	toMidiCmd.Flags().IntVar(&maxFiles, "max", 0, "convert at most this many files")
	rootCmd.AddCommand(toJSONCmd)
	rootCmd.AddCommand(toMidiCmd)
}

var toJSONCmd = &cobra.Command{
	Use:   "tojson <in-dir> <out-dir>",
	Short: "Converts MIDI files to JSON",
	Long:  `Converts every .mid/.midi file under in-dir to its JSON event form under out-dir, keeping the directory layout.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := file.GatherMidiPaths(args[0], maxFiles)
		if err != nil {
			return err
		}
		jobs := file.CreateJobs(paths, args[0], args[1], ".json")
		return convert(cmd.Context(), jobs, ToJSON)
	},
}

var toMidiCmd = &cobra.Command{
	Use:   "tomidi <in-dir> <out-dir>",
	Short: "Converts JSON files to MIDI",
	Long:  `Converts every .json event file under in-dir back to a Standard MIDI File under out-dir.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := file.GatherPaths(args[0], maxFiles, ".json")
		if err != nil {
			return err
		}
		jobs := file.CreateJobs(paths, args[0], args[1], ".mid")
		return convert(cmd.Context(), jobs, ToMidi)
	},
}

func ToJSON(_ context.Context, j file.Job) (struct{}, error) {
	s, err := midi.ReadMidiFile(j.Input)
	if err != nil {
		return struct{}{}, err
	}
	// the JSON form has no header, so tomidi writes cfg.TicksPerQuarter
	if res := codec.Resolution(s); res != cfg.TicksPerQuarter {
		logger.Warn("Resolution differs, pass --ticks-per-quarter to tomidi to keep timing",
			zap.String("file", j.Input),
			zap.Uint16("ticks_per_quarter", res),
			zap.Uint16("default", cfg.TicksPerQuarter))
	}
	score, err := codec.FromSMF(s)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, midi.WriteJSONFile(j.Output, score)
}

func ToMidi(_ context.Context, j file.Job) (struct{}, error) {
	score, err := midi.ReadScore(j.Input)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, midi.WriteMidiFile(j.Output, score, codec.Options{TicksPerQuarter: cfg.TicksPerQuarter})
}

func convert(ctx context.Context, jobs []file.Job, fn func(context.Context, file.Job) (struct{}, error)) error {
	results := batch.Run(ctx, logger, jobs, cfg.Workers, fn)
	failed := batch.Failed(results)
	logger.Info("Converted",
		zap.Int("files", len(results)-len(failed)),
		zap.Int("skipped", len(failed)))
	if len(jobs) > 0 && len(failed) == len(jobs) {
		return errors.Errorf("all %d files failed", len(jobs))
	}
	return nil
}
