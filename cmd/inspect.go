package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jsphweid/midigen/chunk"
	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/midi"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Inspects a score or a chunk",
	Long:  `Prints the JSON event form of a .mid/.midi/.json file, or the header and training pairs of a chunk .dat file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if filepath.Ext(args[0]) == ".dat" {
			return inspectChunk(args[0])
		}
		return inspectScore(args[0])
	},
}

func inspectScore(path string) error {
	score, err := midi.ReadScore(path)
	if err != nil {
		return err
	}
	dat, err := codec.MarshalScore(score)
	if err != nil {
		return err
	}
	fmt.Println(string(dat))
	return nil
}

func inspectChunk(path string) error {
	h, pairs, err := chunk.ReadPairs(path)
	if err != nil {
		return err
	}
	fmt.Printf("length: %v\n", h.Length)
	fmt.Printf("vocab size: %v\n", h.VocabSize)
	fmt.Printf("count: %v\n", h.Count)
	for _, p := range pairs {
		fmt.Printf("%v -> %v\n", p.Context, p.Target)
	}
	return nil
}
