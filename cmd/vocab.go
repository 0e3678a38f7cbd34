package cmd

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/jsphweid/midigen/chunk"
	"github.com/jsphweid/midigen/db"
	"github.com/jsphweid/midigen/file"
	"github.com/jsphweid/midigen/midi"
	"github.com/jsphweid/midigen/pipeline"
	"github.com/jsphweid/midigen/vocab"
	"github.com/jsphweid/midigen/window"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const VocabFilename = "vocab.json"

var (
	exportChunks  bool
	pairsPerChunk int
	dynamoTable   string
	vocabName     string
)

func init() {
	flags := vocabCmd.Flags()
	flags.IntVar(&maxFiles, "max", 0, "read at most this many files")
	flags.BoolVar(&exportChunks, "chunks", false, "also export training pairs as chunk files")
	flags.IntVar(&pairsPerChunk, "pairs-per-chunk", chunk.DefaultPairs, "training pairs per chunk file")
	flags.StringVar(&dynamoTable, "dynamo-table", "", "also put the vocabulary into this DynamoDB table")
	flags.StringVar(&vocabName, "name", "default", "key of the vocabulary in DynamoDB")
	rootCmd.AddCommand(vocabCmd)
}

var vocabCmd = &cobra.Command{
	Use:   "vocab <midi-dir>",
	Short: "Builds the token vocabulary",
	Long: `Builds the token vocabulary of every MIDI file under midi-dir and writes
it to <out>/vocab.json. Training pairs can be exported for an external
trainer with --chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return BuildVocab(cmd.Context(), args[0])
	},
}

func BuildVocab(ctx context.Context, dir string) error {
	paths, err := file.GatherMidiPaths(dir, maxFiles)
	if err != nil {
		return err
	}
	corpus, err := pipeline.BuildCorpus(ctx, logger, paths, cfg.Workers)
	if err != nil {
		return err
	}
	v, err := vocab.Build(corpus.Tokens)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := v.Write(&buf); err != nil {
		return err
	}
	path := filepath.Join(cfg.OutDir, VocabFilename)
	if err := midi.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("Wrote vocabulary", zap.String("file", path), zap.Int("size", v.Size()))

	if exportChunks {
		if err := writeChunks(v, corpus.Tokens); err != nil {
			return err
		}
	}
	if dynamoTable != "" {
		client, err := db.NewClient(cfg)
		if err != nil {
			return err
		}
		if err := db.NewVocabularyStore(client, dynamoTable).Put(ctx, vocabName, v); err != nil {
			return err
		}
		logger.Info("Stored vocabulary", zap.String("table", dynamoTable), zap.String("name", vocabName))
	}
	return nil
}

func writeChunks(v *vocab.Vocabulary, tokens []string) error {
	indices, err := v.Encode(tokens)
	if err != nil {
		return err
	}
	w, err := window.New(indices, cfg.SequenceLength)
	if err != nil {
		return err
	}
	dir := filepath.Join(cfg.OutDir, "chunks")
	chunks, err := chunk.Write(dir, w, v.Size(), pairsPerChunk)
	if err != nil {
		return err
	}
	logger.Info("Wrote chunks", zap.String("dir", dir), zap.Int("chunks", len(chunks)), zap.Int("pairs", w.Len()))
	return nil
}
