package chord

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

const Separator = "."

var ErrBadPitch = errors.New("bad pitch name")

// spelling used for every extracted pitch, flats written as "-"
var noteNames = [12]string{"C", "C#", "D", "E-", "E", "F", "F#", "G", "G#", "A", "B-", "B"}

var steps = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

func PitchName(midi int) string {
	return noteNames[((midi%12)+12)%12] + strconv.Itoa(floorDiv(midi, 12)-1)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// ParsePitch converts a name such as "C4", "F#3", "E-5" or "Bb" to a MIDI
// pitch. Accidentals may repeat and the octave defaults to 4. A "-" is
// always a flat, so names below octave 0 do not parse back to their pitch.
func ParsePitch(name string) (int, error) {
	if name == "" {
		return 0, errors.Wrap(ErrBadPitch, "empty")
	}
	step, ok := steps[byte(unicode.ToUpper(rune(name[0])))]
	if !ok {
		return 0, errors.Wrapf(ErrBadPitch, "%q has no note letter", name)
	}

	rest := name[1:]
	alter := 0
accidentals:
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			alter++
		case '-', 'b':
			alter--
		default:
			break accidentals
		}
		rest = rest[1:]
	}
	oct := 4
	if rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, errors.Wrapf(ErrBadPitch, "%q has a bad octave", name)
		}
		oct = o
	}
	return (oct+1)*12 + step + alter, nil
}

// CreateChordKey joins the distinct pitch classes of notes, ascending.
func CreateChordKey(notes []int) model.Token {
	seen := make(map[int]bool)
	var classes []int
	for _, n := range notes {
		pc := ((n % 12) + 12) % 12
		if !seen[pc] {
			seen[pc] = true
			classes = append(classes, pc)
		}
	}
	sort.Ints(classes)

	parts := make([]string, len(classes))
	for i, pc := range classes {
		parts[i] = strconv.Itoa(pc)
	}
	return strings.Join(parts, Separator)
}

type onset struct {
	tick  uint64
	notes []int
}

// GetTokens walks every track of score and emits one token per distinct
// onset tick: a pitch name when a single note starts there, otherwise the
// chord key of everything that starts together.
func GetTokens(score model.Score) ([]model.Token, error) {
	byTick := make(map[uint64]*onset)
	var onsets []*onset

	for ti, events := range score.Tracks {
		var absTicks uint64
		for ei, event := range events {
			absTicks += uint64(event.DeltaTime)
			if event.Type() != "note_on" {
				continue
			}
			key, okKey := event.Fields.Int("note")
			velocity, okVel := event.Fields.Int("velocity")
			if !okKey || !okVel {
				return nil, errors.Errorf("track %d event %d: note_on without note/velocity", ti, ei)
			}
			// velocity 0 is a note off
			if velocity == 0 {
				continue
			}
			o, ok := byTick[absTicks]
			if !ok {
				o = &onset{tick: absTicks}
				byTick[absTicks] = o
				onsets = append(onsets, o)
			}
			o.notes = append(o.notes, key)
		}
	}

	sort.SliceStable(onsets, func(i, j int) bool {
		return onsets[i].tick < onsets[j].tick
	})

	tokens := make([]model.Token, 0, len(onsets))
	for _, o := range onsets {
		switch {
		case len(o.notes) == 1 && o.notes[0] < 12:
			// names in octave -1 ("E-1") read back as flats in octave 1,
			// so the lowest notes are written as their bare pitch number
			tokens = append(tokens, strconv.Itoa(o.notes[0]))
		case len(o.notes) == 1:
			tokens = append(tokens, PitchName(o.notes[0]))
		default:
			tokens = append(tokens, CreateChordKey(o.notes))
		}
	}
	return tokens, nil
}
