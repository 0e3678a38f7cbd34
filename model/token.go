package model

// Token is either a pitch name ("C4") or a chord of pitch classes ("0.4.7").
type Token = string

// Window holds the most recent vocabulary indices, oldest first.
type Window = []int

// Placement is one decoded Note (a single pitch) or Chord at an offset
// measured in quarter lengths.
type Placement struct {
	Offset  float64
	Pitches []int
}

func (p Placement) IsChord() bool {
	return len(p.Pitches) > 1
}
