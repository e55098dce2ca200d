package violations

import "image"

// Type identifies a violation category. Values double as the persisted
// string form.
type Type string

const (
	NoHelmet     Type = "no_helmet"
	TripleRiding Type = "triple_riding"
	Overspeeding Type = "overspeeding"
	CellPhone    Type = "cell_phone"
	WrongWay     Type = "wrong_way"
)

// Chargeable reports whether a citation is issued for this violation type.
func Chargeable(t Type) bool {
	switch t {
	case NoHelmet, TripleRiding, Overspeeding:
		return true
	}
	return false
}

// Event is one classified violation, created once and immutable afterwards.
type Event struct {
	Type       Type
	Confidence float64
	Box        image.Rectangle

	// Speed carries the estimate that triggered an overspeeding event, or
	// the track's current estimate for context on other types.
	Speed    float64
	HasSpeed bool
}
