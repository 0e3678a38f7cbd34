// Package codec converts between Standard MIDI Files, the in-memory
// Score model and the textual JSON form of a Score.
//
// The textual form is a list of tracks, each a list of
// [delta_time, "message"|"meta", {fields}] records, with field names
// following mido's message dictionaries. Every conversion is lossless:
// field order, delta times and the message/meta split survive any number
// of round trips.
package codec

import (
	"fmt"
	"math"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

var ErrMalformedEvent = errors.New("malformed event")

const DefaultTicksPerQuarter = 480

type Options struct {
	TicksPerQuarter uint16
}

func (o Options) ticksPerQuarter() uint16 {
	if o.TicksPerQuarter == 0 {
		return DefaultTicksPerQuarter
	}
	return o.TicksPerQuarter
}

func malformed(format string, args ...any) error {
	return errors.Wrapf(ErrMalformedEvent, format, args...)
}

// timeField is carried by mido dictionaries. It is preserved verbatim but
// the event's DeltaTime is what gets written.
const timeField = "time"

// Validate checks that e carries exactly the fields its type requires,
// with values of the right type and range, and that its kind matches.
func Validate(e model.Event) error {
	typ, ok := e.Fields.String("type")
	if !ok {
		return malformed("missing or non-string type")
	}
	spec, ok := specs[typ]
	if !ok {
		return malformed("unknown type %q", typ)
	}
	if spec.kind != e.Kind {
		return malformed("%s is a %s event, got %s", typ, spec.kind, e.Kind)
	}

	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Name] {
			return malformed("%s: duplicate field %q", typ, f.Name)
		}
		seen[f.Name] = true
		switch f.Name {
		case "type":
			continue
		case timeField:
			if v, ok := f.Value.(int); !ok || v < 0 {
				return malformed("%s: time must be a non-negative integer", typ)
			}
			continue
		}
		fs, ok := spec.field(f.Name)
		if !ok {
			return malformed("%s: unexpected field %q", typ, f.Name)
		}
		if err := fs.check(f.Value); err != nil {
			return errors.Wrap(err, typ)
		}
	}
	for _, fs := range spec.fields {
		if !seen[fs.name] {
			return malformed("%s: missing field %q", typ, fs.name)
		}
	}
	return nil
}

func (s messageSpec) field(name string) (fieldSpec, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return fieldSpec{}, false
}

func (fs fieldSpec) check(v any) error {
	switch fs.kind {
	case intValue, powerOfTwoValue:
		i, ok := v.(int)
		if !ok {
			return malformed("%s must be an integer, got %T", fs.name, v)
		}
		if i < fs.min || i > fs.max {
			return malformed("%s=%d out of range [%d, %d]", fs.name, i, fs.min, fs.max)
		}
		if fs.kind == powerOfTwoValue && i&(i-1) != 0 {
			return malformed("%s=%d is not a power of two", fs.name, i)
		}
	case textValue:
		s, ok := v.(string)
		if !ok {
			return malformed("%s must be a string, got %T", fs.name, v)
		}
		for _, r := range s {
			if r > 0xFF {
				return malformed("%s contains %q outside latin-1", fs.name, r)
			}
		}
	case bytesValue:
		b, ok := v.([]int)
		if !ok {
			return malformed("%s must be a list of integers, got %T", fs.name, v)
		}
		for _, i := range b {
			if i < fs.min || i > fs.max {
				return malformed("%s byte %d out of range [%d, %d]", fs.name, i, fs.min, fs.max)
			}
		}
	case frameRateValue:
		if _, ok := frameRateCode(v); !ok {
			return malformed("%s=%v is not one of 24, 25, 29.97, 30", fs.name, v)
		}
	case keyValue:
		s, ok := v.(string)
		if !ok {
			return malformed("%s must be a string, got %T", fs.name, v)
		}
		if _, ok := keyNames[s]; !ok {
			return malformed("unknown key %q", s)
		}
	default:
		panic(fmt.Sprintf("unhandled value kind %d", fs.kind))
	}
	return nil
}

func frameRateCode(v any) (byte, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	for i, r := range frameRates {
		if math.Abs(r-f) < 1e-9 {
			// 29.97 must stay a float and the whole rates must stay ints
			if _, isInt := v.(int); isInt == (r != math.Trunc(r)) {
				return 0, false
			}
			return byte(i), true
		}
	}
	return 0, false
}
