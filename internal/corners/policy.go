package corners

import "fmt"

// ScorePolicy holds the base score per outcome and the inclusive bonus cap.
type ScorePolicy struct {
	Win      int `json:"win"`
	Draw     int `json:"draw"`
	Lose     int `json:"lose"`
	BonusMax int `json:"bonusMax"`
}

var DefaultPolicy = ScorePolicy{Win: 40, Draw: 30, Lose: 10, BonusMax: 5}

func (p ScorePolicy) Validate() error {
	if p.Lose < 0 || p.Lose > p.Draw || p.Draw > p.Win {
		return fmt.Errorf("score policy must satisfy 0 <= lose <= draw <= win, got %d/%d/%d", p.Lose, p.Draw, p.Win)
	}
	if p.BonusMax < 0 {
		return fmt.Errorf("score policy bonus max must be >= 0, got %d", p.BonusMax)
	}
	return nil
}

// ClampBonus limits b to [0, BonusMax]. Out-of-range bonuses are never rejected.
func (p ScorePolicy) ClampBonus(b int) int {
	return max(0, min(b, p.BonusMax))
}

// Base returns the pre-bonus score for o. Manual outcomes use manualBase.
func (p ScorePolicy) Base(o Outcome, manualBase int) (int, error) {
	switch o {
	case OutcomeWin:
		return p.Win, nil
	case OutcomeDraw:
		return p.Draw, nil
	case OutcomeLose:
		return p.Lose, nil
	case OutcomeManual:
		if manualBase < 0 {
			return 0, fmt.Errorf("%w: manual base %d is negative", ErrInvalidScore, manualBase)
		}
		return manualBase, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidOutcome, uint8(o))
	}
}

// FinalScore combines a base and an already clamped bonus.
func FinalScore(base, bonus int) int {
	return base + bonus
}

// OutcomeFor classifies a raw base score, falling back to manual.
func (p ScorePolicy) OutcomeFor(base int) Outcome {
	switch base {
	case p.Win:
		return OutcomeWin
	case p.Lose:
		return OutcomeLose
	case p.Draw:
		return OutcomeDraw
	default:
		return OutcomeManual
	}
}

// Award is a scoring request for one station.
type Award struct {
	Outcome Outcome
	Bonus   int
	// Base is only read for OutcomeManual.
	Base int
}

// Scored is an Award resolved against a policy.
type Scored struct {
	Outcome Outcome
	Base    int
	Bonus   int
	Score   int
}

// Resolve clamps the bonus and computes the final score.
func (p ScorePolicy) Resolve(a Award) (Scored, error) {
	base, err := p.Base(a.Outcome, a.Base)
	if err != nil {
		return Scored{}, err
	}
	bonus := p.ClampBonus(a.Bonus)
	return Scored{
		Outcome: a.Outcome,
		Base:    base,
		Bonus:   bonus,
		Score:   FinalScore(base, bonus),
	}, nil
}
