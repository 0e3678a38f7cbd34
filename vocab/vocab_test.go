package vocab

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestBuildSortsDistinctTokens(t *testing.T) {
	v, err := Build([]model.Token{"E4", "C4", "0.4.7", "C4", "E4"})

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]model.Token{"0.4.7", "C4", "E4"}, v.Tokens())
	assert.Equal(3, v.Size())
}

func TestBuildIsDeterministic(t *testing.T) {
	a, _ := Build([]model.Token{"G4", "C4", "E4", "C4"})
	b, _ := Build([]model.Token{"C4", "C4", "E4", "G4"})
	assert.Equal(t, a.Tokens(), b.Tokens())
}

func TestBijection(t *testing.T) {
	corpus := []model.Token{"C4", "C#4", "0.4.7", "11", "B-3", "C4", "2.5"}
	v, err := Build(corpus)
	assert := assert.New(t)
	assert.NoError(err)

	for i := 0; i < v.Size(); i++ {
		tok, ok := v.TokenOf(i)
		assert.True(ok)
		idx, ok := v.IndexOf(tok)
		assert.True(ok)
		assert.Equal(i, idx)
	}
	for _, tok := range corpus {
		idx, ok := v.IndexOf(tok)
		assert.True(ok)
		back, _ := v.TokenOf(idx)
		assert.Equal(tok, back)
	}
}

func TestEmptyCorpus(t *testing.T) {
	_, err := Build(nil)
	assert.True(t, errors.Is(err, ErrEmptyCorpus))
	_, err = Load([]model.Token{})
	assert.True(t, errors.Is(err, ErrEmptyCorpus))
}

func TestLoadRejectsDuplicates(t *testing.T) {
	_, err := Load([]model.Token{"C4", "E4", "C4"})
	assert.True(t, errors.Is(err, ErrDuplicateToken))
}

func TestLoadKeepsListOrder(t *testing.T) {
	v, err := Load([]model.Token{"E4", "C4"})
	assert := assert.New(t)
	assert.NoError(err)
	idx, _ := v.IndexOf("E4")
	assert.Equal(0, idx)
}

func TestEncodeDecode(t *testing.T) {
	v, _ := Build([]model.Token{"C4", "C4", "E4", "C4"})
	assert := assert.New(t)

	indices, err := v.Encode([]model.Token{"C4", "C4", "E4", "C4"})
	assert.NoError(err)
	assert.Equal([]int{0, 0, 1, 0}, indices)

	tokens, err := v.Decode(indices)
	assert.NoError(err)
	assert.Equal([]model.Token{"C4", "C4", "E4", "C4"}, tokens)

	_, err = v.Encode([]model.Token{"D4"})
	assert.True(errors.Is(err, ErrUnknownToken))
	_, err = v.Decode([]int{2})
	assert.True(errors.Is(err, ErrUnknownToken))
}

func TestWriteRead(t *testing.T) {
	v, _ := Build([]model.Token{"C4", "0.4.7", "E4"})
	var buf bytes.Buffer
	assert := assert.New(t)
	assert.NoError(v.Write(&buf))

	back, err := Read(&buf)
	assert.NoError(err)
	assert.Equal(v.Tokens(), back.Tokens())

	_, err = Read(strings.NewReader(`["C4", "C4"]`))
	assert.True(errors.Is(err, ErrDuplicateToken))
}
