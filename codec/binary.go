package codec

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSMF parses a Standard MIDI File. The smf reader panics on some
// corrupt inputs, so panics are turned into errors here.
func ReadSMF(data []byte) (s *smf.SMF, e error) {
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = errors.Errorf("smf reader panicked: %v", r)
		}
	}()

	res, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "could not parse midi data")
	}
	return res, nil
}

// Decode parses binary MIDI data into a Score.
func Decode(data []byte) (model.Score, error) {
	s, err := ReadSMF(data)
	if err != nil {
		return model.Score{}, err
	}
	return FromSMF(s)
}

// Encode serializes a Score as a Standard MIDI File.
func Encode(score model.Score, opts Options) ([]byte, error) {
	s, err := ToSMF(score, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "could not write midi data")
	}
	return buf.Bytes(), nil
}

// Resolution returns the ticks per quarter note of s, or 0 for SMPTE
// time formats.
func Resolution(s *smf.SMF) uint16 {
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		return uint16(mt)
	}
	return 0
}

func FromSMF(s *smf.SMF) (model.Score, error) {
	var score model.Score
	for ti, track := range s.Tracks {
		events := make(model.Track, 0, len(track))
		for ei, evt := range track {
			kind, fields, err := decodeMessage([]byte(evt.Message))
			if err != nil {
				return model.Score{}, errors.Wrapf(err, "track %d event %d", ti, ei)
			}
			events = append(events, model.Event{
				DeltaTime: evt.Delta,
				Kind:      kind,
				Fields:    fields,
			})
		}
		score.Tracks = append(score.Tracks, events)
	}
	return score, nil
}

func ToSMF(score model.Score, opts Options) (*smf.SMF, error) {
	res := smf.New()
	res.TimeFormat = smf.MetricTicks(opts.ticksPerQuarter())

	for ti, track := range score.Tracks {
		if err := checkEndOfTrack(track); err != nil {
			return nil, errors.Wrapf(err, "track %d", ti)
		}
		var newTrack smf.Track
		for ei, evt := range track {
			if err := Validate(evt); err != nil {
				return nil, errors.Wrapf(err, "track %d event %d", ti, ei)
			}
			msg, err := encodeMessage(evt.Fields)
			if err != nil {
				return nil, errors.Wrapf(err, "track %d event %d", ti, ei)
			}
			newTrack = append(newTrack, smf.Event{Delta: evt.DeltaTime, Message: smf.Message(msg)})
		}
		res.Tracks = append(res.Tracks, newTrack)
	}
	return res, nil
}

// checkEndOfTrack requires exactly one end_of_track, as the last event.
// The smf writer does not close tracks, and an unclosed track cannot be
// read back.
func checkEndOfTrack(track model.Track) error {
	if len(track) == 0 {
		return malformed("empty track, want at least end_of_track")
	}
	for ei, evt := range track[:len(track)-1] {
		if evt.Type() == "end_of_track" {
			return malformed("end_of_track at event %d of %d", ei, len(track))
		}
	}
	if track[len(track)-1].Type() != "end_of_track" {
		return malformed("track does not end with end_of_track")
	}
	return nil
}

func decodeMessage(raw []byte) (model.Kind, model.Fields, error) {
	if len(raw) == 0 {
		return 0, nil, malformed("empty message")
	}
	status := raw[0]
	switch {
	case status == 0xFF:
		fields, err := decodeMeta(raw)
		return model.Meta, fields, err
	case status == sysexStatus:
		data := raw[1:]
		if n := len(data); n > 0 && data[n-1] == 0xF7 {
			data = data[:n-1]
		}
		for _, b := range data {
			if b > 0x7F {
				return 0, nil, malformed("sysex data byte 0x%02X out of range", b)
			}
		}
		return model.Channel, model.Fields{
			{Name: "type", Value: "sysex"},
			{Name: "data", Value: bytesToInts(data)},
		}, nil
	case status >= 0x80 && status < 0xF0:
		fields, err := decodeChannel(raw)
		return model.Channel, fields, err
	}
	return 0, nil, malformed("unsupported status byte 0x%02X", status)
}

func decodeChannel(raw []byte) (model.Fields, error) {
	code, channel := raw[0]&0xF0, int(raw[0]&0x0F)
	typ := channelTypes[code]
	spec := specs[typ]
	// every channel field except the channel itself is one data byte,
	// apart from pitchwheel which packs two bytes into one value
	want := len(spec.fields)
	if typ == "pitchwheel" {
		want = 3
	}
	if len(raw) != want {
		return nil, malformed("%s needs %d bytes, got %d", typ, want, len(raw))
	}
	fields := model.Fields{
		{Name: "type", Value: typ},
		{Name: "channel", Value: channel},
	}
	for _, b := range raw[1:] {
		if b > 0x7F {
			return nil, malformed("%s data byte 0x%02X out of range", typ, b)
		}
	}
	if typ == "pitchwheel" {
		pitch := (int(raw[2])<<7 | int(raw[1])) - 8192
		return append(fields, model.Field{Name: "pitch", Value: pitch}), nil
	}
	for i, fs := range spec.fields[1:] {
		fields = append(fields, model.Field{Name: fs.name, Value: int(raw[i+1])})
	}
	return fields, nil
}

func decodeMeta(raw []byte) (model.Fields, error) {
	if len(raw) < 3 {
		return nil, malformed("truncated meta message")
	}
	typeByte := raw[1]
	length, n, ok := readVarint(raw[2:])
	if !ok || len(raw[2+n:]) != int(length) {
		return nil, malformed("meta 0x%02X length mismatch", typeByte)
	}
	data := raw[2+n:]

	typ, known := metaTypes[typeByte]
	if !known {
		return model.Fields{
			{Name: "type", Value: "unknown_meta"},
			{Name: "type_byte", Value: int(typeByte)},
			{Name: "data", Value: bytesToInts(data)},
		}, nil
	}

	fields := model.Fields{{Name: "type", Value: typ}}
	add := func(name string, v any) {
		fields = append(fields, model.Field{Name: name, Value: v})
	}
	need := func(size int) error {
		if len(data) != size {
			return malformed("%s needs %d data bytes, got %d", typ, size, len(data))
		}
		return nil
	}

	switch spec := specs[typ]; {
	case len(spec.fields) == 1 && spec.fields[0].kind == textValue:
		add(spec.fields[0].name, latin1(data))
	case typ == "sequence_number":
		if err := need(2); err != nil {
			return nil, err
		}
		add("number", int(data[0])<<8|int(data[1]))
	case typ == "channel_prefix":
		if err := need(1); err != nil {
			return nil, err
		}
		if data[0] > 15 {
			return nil, malformed("channel_prefix channel %d out of range", data[0])
		}
		add("channel", int(data[0]))
	case typ == "midi_port":
		if err := need(1); err != nil {
			return nil, err
		}
		add("port", int(data[0]))
	case typ == "end_of_track":
		if err := need(0); err != nil {
			return nil, err
		}
	case typ == "set_tempo":
		if err := need(3); err != nil {
			return nil, err
		}
		add("tempo", int(data[0])<<16|int(data[1])<<8|int(data[2]))
	case typ == "smpte_offset":
		if err := need(5); err != nil {
			return nil, err
		}
		rate := frameRates[data[0]>>5&0x03]
		if rate == math.Trunc(rate) {
			add("frame_rate", int(rate))
		} else {
			add("frame_rate", rate)
		}
		add("hours", int(data[0]&0x1F))
		add("minutes", int(data[1]))
		add("seconds", int(data[2]))
		add("frames", int(data[3]))
		add("sub_frames", int(data[4]))
	case typ == "time_signature":
		if err := need(4); err != nil {
			return nil, err
		}
		if data[1] > 30 {
			return nil, malformed("time_signature denominator exponent %d too large", data[1])
		}
		add("numerator", int(data[0]))
		add("denominator", 1<<data[1])
		add("clocks_per_click", int(data[2]))
		add("notated_32nd_notes_per_beat", int(data[3]))
	case typ == "key_signature":
		if err := need(2); err != nil {
			return nil, err
		}
		name, ok := keyName(int8(data[0]), data[1] == 1)
		if !ok || data[1] > 1 {
			return nil, malformed("unknown key signature % X", data)
		}
		add("key", name)
	case typ == "sequencer_specific":
		add("data", bytesToInts(data))
	default:
		return nil, malformed("unhandled meta type %s", typ)
	}

	for _, f := range fields[1:] {
		fs, _ := specs[typ].field(f.Name)
		if err := fs.check(f.Value); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// encodeMessage expects fields that already passed Validate.
func encodeMessage(fields model.Fields) ([]byte, error) {
	typ := fields.Type()
	spec := specs[typ]
	get := func(name string) int {
		v, _ := fields.Int(name)
		return v
	}

	if spec.kind == model.Channel {
		if spec.code == sysexStatus {
			data, _ := fields.Ints("data")
			msg := append([]byte{sysexStatus}, intsToBytes(data)...)
			return append(msg, 0xF7), nil
		}
		status := spec.code | byte(get("channel"))
		if typ == "pitchwheel" {
			p := get("pitch") + 8192
			return []byte{status, byte(p & 0x7F), byte(p >> 7 & 0x7F)}, nil
		}
		msg := []byte{status}
		for _, fs := range spec.fields[1:] {
			msg = append(msg, byte(get(fs.name)))
		}
		return msg, nil
	}

	var data []byte
	typeByte := spec.code
	switch {
	case len(spec.fields) == 1 && spec.fields[0].kind == textValue:
		s, _ := fields.String(spec.fields[0].name)
		data = fromLatin1(s)
	case typ == "sequence_number":
		n := get("number")
		data = []byte{byte(n >> 8), byte(n)}
	case typ == "channel_prefix":
		data = []byte{byte(get("channel"))}
	case typ == "midi_port":
		data = []byte{byte(get("port"))}
	case typ == "end_of_track":
	case typ == "set_tempo":
		t := get("tempo")
		data = []byte{byte(t >> 16), byte(t >> 8), byte(t)}
	case typ == "smpte_offset":
		rate, _ := fields.Get("frame_rate")
		code, _ := frameRateCode(rate)
		data = []byte{
			code<<5 | byte(get("hours")),
			byte(get("minutes")),
			byte(get("seconds")),
			byte(get("frames")),
			byte(get("sub_frames")),
		}
	case typ == "time_signature":
		exp := 0
		for d := get("denominator"); d > 1; d >>= 1 {
			exp++
		}
		data = []byte{
			byte(get("numerator")),
			byte(exp),
			byte(get("clocks_per_click")),
			byte(get("notated_32nd_notes_per_beat")),
		}
	case typ == "key_signature":
		name, _ := fields.String("key")
		k := keyNames[name]
		var mi byte
		if k.minor {
			mi = 1
		}
		data = []byte{byte(k.sf), mi}
	case typ == "sequencer_specific":
		b, _ := fields.Ints("data")
		data = intsToBytes(b)
	case typ == "unknown_meta":
		typeByte = byte(get("type_byte"))
		if _, known := metaTypes[typeByte]; known || typeByte == 0xFF {
			return nil, malformed("unknown_meta type_byte 0x%02X belongs to a known meta type", typeByte)
		}
		b, _ := fields.Ints("data")
		data = intsToBytes(b)
	default:
		panic(fmt.Sprintf("no encoder for %s", typ))
	}

	msg := []byte{0xFF, typeByte}
	msg = appendVarint(msg, uint32(len(data)))
	return append(msg, data...), nil
}

func bytesToInts(b []byte) []int {
	res := make([]int, len(b))
	for i, v := range b {
		res[i] = int(v)
	}
	return res
}

func intsToBytes(v []int) []byte {
	res := make([]byte, len(v))
	for i, b := range v {
		res[i] = byte(b)
	}
	return res
}

// Meta text is read byte-per-rune, the way mido decodes it, so that
// arbitrary bytes survive the trip through JSON.
func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func fromLatin1(s string) []byte {
	var res []byte
	for _, r := range s {
		res = append(res, byte(r))
	}
	return res
}

func readVarint(b []byte) (uint32, int, bool) {
	var x uint32
	for i := 0; i < 4 && i < len(b); i++ {
		x = x<<7 | uint32(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return x, i + 1, true
		}
	}
	return 0, 0, false
}

func appendVarint(dst []byte, x uint32) []byte {
	var buf [4]byte
	n := 1
	buf[3] = byte(x & 0x7F)
	for x >>= 7; x > 0; x >>= 7 {
		n++
		buf[4-n] = byte(x&0x7F) | 0x80
	}
	return append(dst, buf[4-n:]...)
}
