package vocab

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

var (
	ErrEmptyCorpus    = errors.New("empty corpus")
	ErrDuplicateToken = errors.New("duplicate token")
	ErrUnknownToken   = errors.New("unknown token")
)

// Vocabulary is a bijection between distinct tokens and the dense indices
// [0, Size()). It is immutable once built and safe for concurrent use.
type Vocabulary struct {
	tokens  []model.Token
	indices map[model.Token]int
}

// Build collects the distinct tokens and numbers them in ascending
// lexicographic order, so the same multiset always yields the same mapping.
func Build(tokens []model.Token) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyCorpus
	}
	sorted := make([]model.Token, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)

	distinct := sorted[:1]
	for _, t := range sorted[1:] {
		if t != distinct[len(distinct)-1] {
			distinct = append(distinct, t)
		}
	}
	return newVocabulary(distinct), nil
}

// Load restores a persisted vocabulary where list position is the index.
func Load(tokens []model.Token) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyCorpus
	}
	seen := make(map[model.Token]bool, len(tokens))
	for i, t := range tokens {
		if seen[t] {
			return nil, errors.Wrapf(ErrDuplicateToken, "%q at index %d", t, i)
		}
		seen[t] = true
	}
	list := make([]model.Token, len(tokens))
	copy(list, tokens)
	return newVocabulary(list), nil
}

func newVocabulary(tokens []model.Token) *Vocabulary {
	v := &Vocabulary{
		tokens:  tokens,
		indices: make(map[model.Token]int, len(tokens)),
	}
	for i, t := range tokens {
		v.indices[t] = i
	}
	return v
}

func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

func (v *Vocabulary) IndexOf(t model.Token) (int, bool) {
	i, ok := v.indices[t]
	return i, ok
}

func (v *Vocabulary) TokenOf(i int) (model.Token, bool) {
	if i < 0 || i >= len(v.tokens) {
		return "", false
	}
	return v.tokens[i], true
}

func (v *Vocabulary) Tokens() []model.Token {
	res := make([]model.Token, len(v.tokens))
	copy(res, v.tokens)
	return res
}

func (v *Vocabulary) Encode(tokens []model.Token) ([]int, error) {
	res := make([]int, len(tokens))
	for i, t := range tokens {
		idx, ok := v.indices[t]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownToken, "%q", t)
		}
		res[i] = idx
	}
	return res, nil
}

func (v *Vocabulary) Decode(indices []int) ([]model.Token, error) {
	res := make([]model.Token, len(indices))
	for i, idx := range indices {
		t, ok := v.TokenOf(idx)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownToken, "index %d", idx)
		}
		res[i] = t
	}
	return res, nil
}

// Write persists the vocabulary as a JSON list of tokens.
func (v *Vocabulary) Write(w io.Writer) error {
	return errors.Wrap(json.NewEncoder(w).Encode(v.tokens), "could not write vocabulary")
}

func Read(r io.Reader) (*Vocabulary, error) {
	var tokens []model.Token
	if err := json.NewDecoder(r).Decode(&tokens); err != nil {
		return nil, errors.Wrap(err, "could not read vocabulary")
	}
	return Load(tokens)
}
