package chord

import (
	"testing"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func noteOn(delta uint32, key, velocity int) model.Event {
	return model.Event{DeltaTime: delta, Kind: model.Channel, Fields: model.Fields{
		{Name: "type", Value: "note_on"},
		{Name: "channel", Value: 0},
		{Name: "note", Value: key},
		{Name: "velocity", Value: velocity},
	}}
}

func tempo(delta uint32) model.Event {
	return model.Event{DeltaTime: delta, Kind: model.Meta, Fields: model.Fields{
		{Name: "type", Value: "set_tempo"},
		{Name: "tempo", Value: 500000},
	}}
}

func TestPitchName(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("C4", PitchName(60))
	assert.Equal("C#4", PitchName(61))
	assert.Equal("E-4", PitchName(63))
	assert.Equal("B-3", PitchName(58))
	assert.Equal("A0", PitchName(21))
	assert.Equal("G9", PitchName(127))
}

func TestParsePitch(t *testing.T) {
	cases := map[string]int{
		"C4":   60,
		"C#4":  61,
		"E-4":  63,
		"Bb3":  58,
		"b-3":  58,
		"D":    62,
		"F##2": 43,
		"C-4":  59,
		"A0":   21,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePitch(name)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParsePitchInvertsPitchName(t *testing.T) {
	for midi := 12; midi < 128; midi++ {
		got, err := ParsePitch(PitchName(midi))
		assert.NoError(t, err)
		assert.Equal(t, midi, got)
	}
}

func TestParsePitchRejectsGarbage(t *testing.T) {
	for _, name := range []string{"", "H4", "4", "C4x", "#"} {
		_, err := ParsePitch(name)
		assert.True(t, errors.Is(err, ErrBadPitch), name)
	}
}

func TestCreateChordKey(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("0.4.7", CreateChordKey([]int{67, 60, 64}))
	assert.Equal("0.4.7", CreateChordKey([]int{76, 55, 72}))
	assert.Equal("0", CreateChordKey([]int{48, 60}))
	assert.Equal("2.5.9", CreateChordKey([]int{74, 69, 65, 62}))
}

func TestGetTokensGroupsOnsetsAcrossTracks(t *testing.T) {
	score := model.Score{Tracks: []model.Track{
		{tempo(0), noteOn(0, 60, 80), noteOn(480, 60, 0), noteOn(0, 62, 80)},
		{noteOn(0, 64, 80), noteOn(0, 67, 80), noteOn(960, 69, 80)},
	}}
	tokens, err := GetTokens(score)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]model.Token{"0.4.7", "D4", "A4"}, tokens)
}

func TestGetTokensEmptyScore(t *testing.T) {
	tokens, err := GetTokens(model.Score{Tracks: []model.Track{{tempo(0)}}})
	assert := assert.New(t)
	assert.NoError(err)
	assert.Empty(tokens)
}

func TestGetTokensSpellsLowestOctaveAsNumbers(t *testing.T) {
	score := model.Score{Tracks: []model.Track{
		{noteOn(0, 4, 80), noteOn(10, 11, 80), noteOn(10, 12, 80), noteOn(10, 27, 80)},
	}}
	tokens, err := GetTokens(score)
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]model.Token{"4", "11", "C0", "E-1"}, tokens)
}
