package codec

import (
	"github.com/jsphweid/midigen/model"
)

type valueKind uint8

const (
	intValue valueKind = iota
	textValue
	bytesValue
	frameRateValue
	keyValue
	powerOfTwoValue
)

type fieldSpec struct {
	name string
	kind valueKind
	min  int
	max  int
}

type messageSpec struct {
	kind model.Kind
	// high nibble of the status byte for channel messages, type byte for meta
	code   byte
	fields []fieldSpec
}

var (
	channelField = fieldSpec{"channel", intValue, 0, 15}
	dataBytes    = fieldSpec{"data", bytesValue, 0, 127}
	metaBytes    = fieldSpec{"data", bytesValue, 0, 255}
)

func data7(name string) fieldSpec {
	return fieldSpec{name, intValue, 0, 127}
}

func byteField(name string) fieldSpec {
	return fieldSpec{name, intValue, 0, 255}
}

func text(name string) []fieldSpec {
	return []fieldSpec{{name, textValue, 0, 0}}
}

const sysexStatus = 0xF0

var specs = map[string]messageSpec{
	"note_off":       {model.Channel, 0x80, []fieldSpec{channelField, data7("note"), data7("velocity")}},
	"note_on":        {model.Channel, 0x90, []fieldSpec{channelField, data7("note"), data7("velocity")}},
	"polytouch":      {model.Channel, 0xA0, []fieldSpec{channelField, data7("note"), data7("value")}},
	"control_change": {model.Channel, 0xB0, []fieldSpec{channelField, data7("control"), data7("value")}},
	"program_change": {model.Channel, 0xC0, []fieldSpec{channelField, data7("program")}},
	"aftertouch":     {model.Channel, 0xD0, []fieldSpec{channelField, data7("value")}},
	"pitchwheel":     {model.Channel, 0xE0, []fieldSpec{channelField, {"pitch", intValue, -8192, 8191}}},
	"sysex":          {model.Channel, sysexStatus, []fieldSpec{dataBytes}},

	"sequence_number":    {model.Meta, 0x00, []fieldSpec{{"number", intValue, 0, 0xFFFF}}},
	"text":               {model.Meta, 0x01, text("text")},
	"copyright":          {model.Meta, 0x02, text("text")},
	"track_name":         {model.Meta, 0x03, text("name")},
	"instrument_name":    {model.Meta, 0x04, text("name")},
	"lyrics":             {model.Meta, 0x05, text("text")},
	"marker":             {model.Meta, 0x06, text("text")},
	"cue_marker":         {model.Meta, 0x07, text("text")},
	"device_name":        {model.Meta, 0x09, text("name")},
	"channel_prefix":     {model.Meta, 0x20, []fieldSpec{channelField}},
	"midi_port":          {model.Meta, 0x21, []fieldSpec{byteField("port")}},
	"end_of_track":       {model.Meta, 0x2F, nil},
	"set_tempo":          {model.Meta, 0x51, []fieldSpec{{"tempo", intValue, 0, 0xFFFFFF}}},
	"smpte_offset":       {model.Meta, 0x54, []fieldSpec{{"frame_rate", frameRateValue, 0, 0}, {"hours", intValue, 0, 31}, {"minutes", intValue, 0, 59}, {"seconds", intValue, 0, 59}, byteField("frames"), {"sub_frames", intValue, 0, 99}}},
	"time_signature":     {model.Meta, 0x58, []fieldSpec{byteField("numerator"), {"denominator", powerOfTwoValue, 1, 1 << 30}, byteField("clocks_per_click"), byteField("notated_32nd_notes_per_beat")}},
	"key_signature":      {model.Meta, 0x59, []fieldSpec{{"key", keyValue, 0, 0}}},
	"sequencer_specific": {model.Meta, 0x7F, []fieldSpec{metaBytes}},
	"unknown_meta":       {model.Meta, 0xFF, []fieldSpec{byteField("type_byte"), metaBytes}},
}

// metaTypes maps a meta type byte back to its name. Bytes missing here
// decode as unknown_meta.
var metaTypes = map[byte]string{}

// channelTypes maps a status high nibble to its name.
var channelTypes = map[byte]string{}

func init() {
	for name, spec := range specs {
		if name == "unknown_meta" {
			continue
		}
		if spec.kind == model.Meta {
			metaTypes[spec.code] = name
		} else if spec.code != sysexStatus {
			channelTypes[spec.code] = name
		}
	}
	for _, k := range keySignatures {
		keyNames[k.name] = k
	}
}

// frame rates indexed by the two rate bits of the smpte hour byte
var frameRates = []float64{24, 25, 29.97, 30}

type keySignature struct {
	name  string
	sf    int8
	minor bool
}

var keySignatures = []keySignature{
	{"Cb", -7, false}, {"Gb", -6, false}, {"Db", -5, false}, {"Ab", -4, false},
	{"Eb", -3, false}, {"Bb", -2, false}, {"F", -1, false}, {"C", 0, false},
	{"G", 1, false}, {"D", 2, false}, {"A", 3, false}, {"E", 4, false},
	{"B", 5, false}, {"F#", 6, false}, {"C#", 7, false},
	{"Abm", -7, true}, {"Ebm", -6, true}, {"Bbm", -5, true}, {"Fm", -4, true},
	{"Cm", -3, true}, {"Gm", -2, true}, {"Dm", -1, true}, {"Am", 0, true},
	{"Em", 1, true}, {"Bm", 2, true}, {"F#m", 3, true}, {"C#m", 4, true},
	{"G#m", 5, true}, {"D#m", 6, true}, {"A#m", 7, true},
}

var keyNames = map[string]keySignature{}

func keyName(sf int8, minor bool) (string, bool) {
	for _, k := range keySignatures {
		if k.sf == sf && k.minor == minor {
			return k.name, true
		}
	}
	return "", false
}

// IsChannelType reports whether the named type is a performable message.
// Every known type is either a channel message or meta, never both.
func IsChannelType(typ string) bool {
	spec, ok := specs[typ]
	return ok && spec.kind == model.Channel
}

// FieldNames returns the canonical field order for typ, starting with "type".
func FieldNames(typ string) []string {
	spec, ok := specs[typ]
	if !ok {
		return nil
	}
	names := []string{"type"}
	for _, f := range spec.fields {
		names = append(names, f.name)
	}
	return names
}
