package pipeline

import (
	"context"

	"github.com/jsphweid/midigen/batch"
	"github.com/jsphweid/midigen/chord"
	"github.com/jsphweid/midigen/file"
	"github.com/jsphweid/midigen/midi"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/vocab"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Corpus is the concatenated token stream of every readable file, in
// path order.
type Corpus struct {
	Tokens []model.Token
	// tokens contributed by each file that was read
	PerFile map[string]int
	Skipped []string
}

func TokensFromFile(path string) ([]model.Token, error) {
	score, err := midi.ReadScore(path)
	if err != nil {
		return nil, err
	}
	return chord.GetTokens(score)
}

// BuildCorpus extracts tokens from every path. Unreadable files are
// skipped; a corpus with no tokens at all is an error.
func BuildCorpus(ctx context.Context, log *zap.Logger, paths []string, workers int) (*Corpus, error) {
	jobs := make([]file.Job, len(paths))
	for i, path := range paths {
		jobs[i] = file.Job{Num: uint32(i), Input: path}
	}
	results := batch.Run(ctx, log, jobs, workers, func(_ context.Context, j file.Job) ([]model.Token, error) {
		return TokensFromFile(j.Input)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Corpus{PerFile: make(map[string]int)}
	for _, r := range results {
		if !r.OK() {
			c.Skipped = append(c.Skipped, r.Job.Input)
			continue
		}
		c.PerFile[r.Job.Input] = len(r.Value)
		c.Tokens = append(c.Tokens, r.Value...)
	}
	log.Info("Built corpus",
		zap.Int("files", len(c.PerFile)),
		zap.Int("skipped", len(c.Skipped)),
		zap.Int("tokens", len(c.Tokens)))
	if len(c.Tokens) == 0 {
		return nil, errors.Wrapf(vocab.ErrEmptyCorpus, "no tokens in %d files", len(paths))
	}
	return c, nil
}
