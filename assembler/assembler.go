// Package assembler decodes generated tokens into timed notes and chords
// and wraps them into a single-track Score.
//
// Generated tokens carry no rhythm, so every token is placed on a uniform
// grid: it sits at the current offset and the offset then advances by
// Step. This is an approximation of the original timing, not an attempt
// to recover it.
package assembler

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jsphweid/midigen/chord"
	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

var ErrMalformedToken = errors.New("malformed token")

type Config struct {
	// offset advance per token, in quarter lengths
	Step float64
	// sounding length of every note, in quarter lengths
	Duration        float64
	Velocity        int
	Channel         int
	Program         int
	ChordBase       int
	TicksPerQuarter uint16
	// microseconds per quarter note
	Tempo     int
	TrackName string
}

func DefaultConfig() Config {
	return Config{
		Step:            0.5,
		Duration:        1.0,
		Velocity:        64,
		Channel:         0,
		Program:         0,
		ChordBase:       0,
		TicksPerQuarter: codec.DefaultTicksPerQuarter,
		Tempo:           500000,
		TrackName:       "Piano",
	}
}

type Assembler struct {
	cfg Config
}

func New(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.Step <= 0 {
		cfg.Step = def.Step
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.TicksPerQuarter == 0 {
		cfg.TicksPerQuarter = def.TicksPerQuarter
	}
	if cfg.Tempo <= 0 {
		cfg.Tempo = def.Tempo
	}
	if cfg.Velocity <= 0 {
		cfg.Velocity = def.Velocity
	}
	return &Assembler{cfg: cfg}
}

// IsChord reports whether token is read as a chord: it contains the chord
// separator or is made only of digits. A lone pitch class such as "7" is
// therefore a one-note chord, never a named pitch.
func IsChord(token model.Token) bool {
	if strings.Contains(token, chord.Separator) {
		return true
	}
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Assemble places every token on the grid. Nothing is returned if any
// token fails to decode.
func (a *Assembler) Assemble(tokens []model.Token) ([]model.Placement, error) {
	placements := make([]model.Placement, 0, len(tokens))
	offset := 0.0
	for i, token := range tokens {
		pitches, err := a.decode(token)
		if err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
		placements = append(placements, model.Placement{Offset: offset, Pitches: pitches})
		offset += a.cfg.Step
	}
	return placements, nil
}

func (a *Assembler) decode(token model.Token) ([]int, error) {
	if token == "" {
		return nil, errors.Wrap(ErrMalformedToken, "empty token")
	}
	if IsChord(token) {
		parts := strings.Split(token, chord.Separator)
		pitches := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedToken, "chord %q has component %q", token, p)
			}
			pitch := n + a.cfg.ChordBase
			if pitch < 0 || pitch > 127 {
				return nil, errors.Wrapf(ErrMalformedToken, "chord %q has pitch %d out of range", token, pitch)
			}
			pitches = append(pitches, pitch)
		}
		return pitches, nil
	}

	pitch, err := chord.ParsePitch(token)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedToken, "%v", err)
	}
	if pitch < 0 || pitch > 127 {
		return nil, errors.Wrapf(ErrMalformedToken, "pitch %q out of range", token)
	}
	return []int{pitch}, nil
}

type timedEvent struct {
	tick  uint64
	off   bool
	pitch int
}

// ToScore renders placements as a single track: name, tempo and program
// first, then note_on/note_off pairs, then end_of_track.
func (a *Assembler) ToScore(placements []model.Placement) model.Score {
	cfg := a.cfg
	toTicks := func(quarters float64) uint64 {
		return uint64(math.Round(quarters * float64(cfg.TicksPerQuarter)))
	}

	var timed []timedEvent
	for _, p := range placements {
		start := toTicks(p.Offset)
		end := start + toTicks(cfg.Duration)
		for _, pitch := range p.Pitches {
			timed = append(timed, timedEvent{tick: start, pitch: pitch})
			timed = append(timed, timedEvent{tick: end, off: true, pitch: pitch})
		}
	}
	// note offs go first so a repeated pitch is released before it restarts
	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].tick != timed[j].tick {
			return timed[i].tick < timed[j].tick
		}
		return timed[i].off && !timed[j].off
	})

	track := model.Track{
		metaEvent(0, model.Field{Name: "type", Value: "track_name"}, model.Field{Name: "name", Value: cfg.TrackName}),
		metaEvent(0, model.Field{Name: "type", Value: "set_tempo"}, model.Field{Name: "tempo", Value: cfg.Tempo}),
		channelEvent(0, "program_change", cfg.Channel, model.Field{Name: "program", Value: cfg.Program}),
	}
	var last uint64
	for _, te := range timed {
		typ := "note_on"
		if te.off {
			typ = "note_off"
		}
		track = append(track, channelEvent(uint32(te.tick-last), typ, cfg.Channel,
			model.Field{Name: "note", Value: te.pitch},
			model.Field{Name: "velocity", Value: cfg.Velocity},
		))
		last = te.tick
	}
	track = append(track, metaEvent(0, model.Field{Name: "type", Value: "end_of_track"}))

	return model.Score{Tracks: []model.Track{track}}
}

// Build decodes tokens straight into a Score.
func (a *Assembler) Build(tokens []model.Token) (model.Score, error) {
	placements, err := a.Assemble(tokens)
	if err != nil {
		return model.Score{}, err
	}
	return a.ToScore(placements), nil
}

func metaEvent(delta uint32, fields ...model.Field) model.Event {
	return model.Event{DeltaTime: delta, Kind: model.Meta, Fields: fields}
}

func channelEvent(delta uint32, typ string, channel int, fields ...model.Field) model.Event {
	all := model.Fields{
		{Name: "type", Value: typ},
		{Name: "channel", Value: channel},
	}
	return model.Event{DeltaTime: delta, Kind: model.Channel, Fields: append(all, fields...)}
}
