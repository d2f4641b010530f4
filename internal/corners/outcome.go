package corners

import "fmt"

// Outcome is the categorical result of a station activity. The zero value
// is invalid so an unset field never reads as a real outcome.
type Outcome uint8

const (
	OutcomeWin Outcome = iota + 1
	OutcomeLose
	OutcomeDraw
	OutcomeManual
)

var outcomeNames = map[Outcome]string{
	OutcomeWin:    "win",
	OutcomeLose:   "lose",
	OutcomeDraw:   "draw",
	OutcomeManual: "manual",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

func (o Outcome) Valid() bool {
	_, ok := outcomeNames[o]
	return ok
}

// ParseOutcome maps a wire tag to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
