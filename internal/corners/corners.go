// Package corners defines the corner-rotation domain: the station catalog,
// per-group rotations, the score policy and the progress/ledger records.
// It has zero external dependencies.
package corners

type Station struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Staff     []string `json:"staff"`
	Lead      string   `json:"lead"`
	Objective string   `json:"objective,omitempty"`
	Method    string   `json:"method,omitempty"`
}

// Rotation is the fixed visiting order of one group.
type Rotation struct {
	GroupID  int   `json:"groupId"`
	Stations []int `json:"stations"`
}

// Progress is the durable per-group position in its rotation.
type Progress struct {
	GroupID             int    `json:"groupId"`
	CurrentStationIndex int    `json:"currentStationIndex"`
	CompletedStationIDs []int  `json:"completedStationIds"`
	TotalScore          int    `json:"totalScore"`
	UpdatedAt           string `json:"updatedAt,omitempty"`
}

// HasCompleted reports whether stationID is in the completed set.
func (p Progress) HasCompleted(stationID int) bool {
	for _, id := range p.CompletedStationIDs {
		if id == stationID {
			return true
		}
	}
	return false
}

// NewProgress returns the zero progress for a group, seeded with total.
func NewProgress(groupID, total int) Progress {
	return Progress{
		GroupID:             groupID,
		CompletedStationIDs: []int{},
		TotalScore:          total,
	}
}

// ScoreEntry is the ledger row for one (group, station) pair.
type ScoreEntry struct {
	GroupID     int     `json:"groupId"`
	StationID   int     `json:"stationId"`
	Score       int     `json:"score"`
	BaseScore   int     `json:"baseScore"`
	BonusScore  int     `json:"bonusScore"`
	OutcomeType Outcome `json:"outcomeType"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// StateOf derives the rotation state. A nil progress means no row exists.
func StateOf(p *Progress, rotationLen int) State {
	switch {
	case p == nil:
		return StateNotStarted
	case p.CurrentStationIndex >= rotationLen:
		return StateCompleted
	default:
		return StateInProgress
	}
}
