package model

// Kind discriminates audible channel messages from stream metadata.
type Kind uint8

const (
	Channel Kind = iota
	Meta
)

func (k Kind) String() string {
	if k == Meta {
		return "meta"
	}
	return "message"
}

func ParseKind(s string) (Kind, bool) {
	switch s {
	case "message":
		return Channel, true
	case "meta":
		return Meta, true
	}
	return Channel, false
}

// Field values are one of int, string, []int or float64.
type Field struct {
	Name  string
	Value any
}

type Fields []Field

func (f Fields) Get(name string) (any, bool) {
	for _, v := range f {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

func (f Fields) Int(name string) (int, bool) {
	v, ok := f.Get(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

func (f Fields) String(name string) (string, bool) {
	v, ok := f.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (f Fields) Ints(name string) ([]int, bool) {
	v, ok := f.Get(name)
	if !ok {
		return nil, false
	}
	i, ok := v.([]int)
	return i, ok
}

// Type returns the discriminator, or "" if the event has none.
func (f Fields) Type() string {
	t, _ := f.String("type")
	return t
}

type Event struct {
	DeltaTime uint32
	Kind      Kind
	Fields    Fields
}

func (e Event) Type() string {
	return e.Fields.Type()
}

// Track order is execution order and must never be re-sorted.
type Track []Event

type Score struct {
	Tracks []Track
}
