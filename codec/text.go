package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

// MarshalScore renders score in its textual form, with the separators
// and ASCII escaping of Python's json.dumps. Fields are written exactly as
// held: a decoded binary file carries no "time" member, while a parsed
// text file keeps whatever members it had.
func MarshalScore(score model.Score) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for ti, track := range score.Tracks {
		if ti > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('[')
		for ei, evt := range track {
			if ei > 0 {
				buf.WriteString(", ")
			}
			if err := writeEvent(&buf, evt); err != nil {
				return nil, errors.Wrapf(err, "track %d event %d", ti, ei)
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeEvent(buf *bytes.Buffer, evt model.Event) error {
	fmt.Fprintf(buf, "[%d, ", evt.DeltaTime)
	writeString(buf, evt.Kind.String())
	buf.WriteString(", {")
	for i, f := range evt.Fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(buf, f.Name)
		buf.WriteString(": ")
		if err := writeValue(buf, f.Value); err != nil {
			return errors.Wrapf(err, "field %q", f.Name)
		}
	}
	buf.WriteString("}]")
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case int:
		buf.WriteString(strconv.Itoa(x))
	case string:
		writeString(buf, x)
	case []int:
		buf.WriteByte('[')
		for i, b := range x {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(strconv.Itoa(b))
		}
		buf.WriteByte(']')
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return malformed("non-finite number %v", x)
		}
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if x == math.Trunc(x) {
			s += ".0"
		}
		buf.WriteString(s)
	default:
		return malformed("unsupported value type %T", v)
	}
	return nil
}

// writeString quotes s with every non-ASCII rune escaped.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20 || (r > 0x7E && r <= 0xFFFF):
			fmt.Fprintf(buf, `\u%04x`, r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// UnmarshalScore parses the textual form of a Score, validating every
// event against its type.
func UnmarshalScore(data []byte) (model.Score, error) {
	var raw [][][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Score{}, errors.Wrap(ErrMalformedEvent, "expected a list of tracks of [delta_time, kind, fields] records: "+err.Error())
	}
	if raw == nil {
		return model.Score{}, malformed("expected a list of tracks, got null")
	}

	score := model.Score{Tracks: make([]model.Track, 0, len(raw))}
	for ti, rawTrack := range raw {
		track := make(model.Track, 0, len(rawTrack))
		for ei, rec := range rawTrack {
			evt, err := decodeRecord(rec)
			if err != nil {
				return model.Score{}, errors.Wrapf(err, "track %d event %d", ti, ei)
			}
			track = append(track, evt)
		}
		score.Tracks = append(score.Tracks, track)
	}
	return score, nil
}

func decodeRecord(rec []json.RawMessage) (model.Event, error) {
	var evt model.Event
	if len(rec) != 3 {
		return evt, malformed("record has %d elements, want 3", len(rec))
	}

	var delta json.Number
	dec := json.NewDecoder(bytes.NewReader(rec[0]))
	dec.UseNumber()
	if err := dec.Decode(&delta); err != nil {
		return evt, malformed("delta_time: %v", err)
	}
	d, err := strconv.ParseUint(delta.String(), 10, 32)
	if err != nil {
		return evt, malformed("delta_time %s is not a non-negative 32-bit integer", delta)
	}
	evt.DeltaTime = uint32(d)

	var kind string
	if err := json.Unmarshal(rec[1], &kind); err != nil {
		return evt, malformed("kind: %v", err)
	}
	k, ok := model.ParseKind(kind)
	if !ok {
		return evt, malformed("kind %q is neither message nor meta", kind)
	}
	evt.Kind = k

	evt.Fields, err = decodeFields(rec[2])
	if err != nil {
		return evt, err
	}
	return evt, Validate(evt)
}

// decodeFields reads a JSON object keeping member order.
func decodeFields(raw json.RawMessage) (model.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("fields: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, malformed("fields must be an object")
	}

	var fields model.Fields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("fields: %v", err)
		}
		name := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, malformed("field %q: %v", name, err)
		}
		value, err := fieldValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		fields = append(fields, model.Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("fields: %v", err)
	}
	return fields, nil
}

func fieldValue(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return number(x)
	case []any:
		res := make([]int, 0, len(x))
		for _, e := range x {
			n, ok := e.(json.Number)
			if !ok {
				return nil, malformed("list element %v is not a number", e)
			}
			i, err := strconv.Atoi(n.String())
			if err != nil {
				return nil, malformed("list element %s is not an integer", n)
			}
			res = append(res, i)
		}
		return res, nil
	}
	return nil, malformed("unsupported value %v", v)
}

// number keeps integer literals as int and anything with a fraction or
// exponent as float64; no coercion between the two.
func number(n json.Number) (any, error) {
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, malformed("bad number %s", n)
	}
	return f, nil
}
