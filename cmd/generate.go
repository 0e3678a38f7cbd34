package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jsphweid/midigen/db"
	"github.com/jsphweid/midigen/file"
	"github.com/jsphweid/midigen/midi"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/pipeline"
	"github.com/jsphweid/midigen/vocab"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	predictorURL string
	dynamoVocab  string
)

func init() {
	addGeneratorFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func addGeneratorFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&maxFiles, "max", 0, "read at most this many files")
	flags.StringVar(&predictorURL, "predictor-url", "", "use a remote model instead of the built-in n-gram")
	flags.StringVar(&dynamoTable, "dynamo-table", "", "DynamoDB table holding stored vocabularies")
	flags.StringVar(&dynamoVocab, "dynamo-vocab", "", "use this stored vocabulary instead of building one from the corpus")
}

var generateCmd = &cobra.Command{
	Use:   "generate <midi-dir>",
	Short: "Generates a new piece",
	Long: `Learns token transitions from every MIDI file under midi-dir, samples
a new token sequence and writes it to <out>/<id>.mid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGenerator(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		gen, err := g.Run(cmd.Context(), model.GenerateRequest{})
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.OutDir, gen.Id+".mid")
		if err := midi.WriteFileAtomic(path, gen.Midi); err != nil {
			return err
		}
		logger.Info("Generated", zap.String("file", path), zap.Int("tokens", len(gen.Tokens)))
		fmt.Println(strings.Join(gen.Tokens, " "))
		return nil
	},
}

type vocabularyGetter interface {
	Get(ctx context.Context, name string) (*vocab.Vocabulary, error)
}

var openVocabularyStore = func() (vocabularyGetter, error) {
	client, err := db.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return db.NewVocabularyStore(client, dynamoTable), nil
}

func loadGenerator(ctx context.Context, dir string) (*pipeline.Generator, error) {
	if dynamoVocab != "" && dynamoTable == "" {
		return nil, errors.New("--dynamo-vocab needs --dynamo-table")
	}
	paths, err := file.GatherMidiPaths(dir, maxFiles)
	if err != nil {
		return nil, err
	}
	corpus, err := pipeline.BuildCorpus(ctx, logger, paths, cfg.Workers)
	if err != nil {
		return nil, err
	}
	var factory pipeline.PredictorFactory
	if predictorURL != "" {
		factory = pipeline.Remote(predictorURL)
	}
	if dynamoVocab == "" {
		return pipeline.NewGenerator(cfg, corpus.Tokens, factory)
	}

	store, err := openVocabularyStore()
	if err != nil {
		return nil, err
	}
	v, err := store.Get(ctx, dynamoVocab)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded vocabulary", zap.String("table", dynamoTable), zap.String("name", dynamoVocab), zap.Int("size", v.Size()))
	return pipeline.NewGeneratorWithVocabulary(cfg, v, corpus.Tokens, factory)
}
