package motion

import "time"

// Original listening defaults.
const (
	DefaultDuration  = 30 * time.Second
	DefaultThreshold = 5.0
)

// Decision is the result of a closed window.
type Decision string

const (
	OutcomeA   Decision = "A"
	OutcomeB   Decision = "B"
	NoDecision Decision = "none"
)

// Window is a snapshot of an accumulation window.
type Window struct {
	ID        string        `json:"id"`
	Duration  time.Duration `json:"duration"`
	Threshold float64       `json:"threshold"`
	RollSum   float64       `json:"roll_sum"`
	PitchSum  float64       `json:"pitch_sum"`
	Count     int           `json:"count"`
	Rejected  int           `json:"rejected"`
	Listening bool          `json:"listening"`
	OpenedAt  time.Time     `json:"opened_at"`
	ClosesAt  time.Time     `json:"closes_at"`
}

// Outcome is emitted exactly once per window that closes normally.
type Outcome struct {
	ID        string        `json:"id"`
	Decision  Decision      `json:"decision"`
	AvgRoll   float64       `json:"avg_roll"`
	AvgPitch  float64       `json:"avg_pitch"`
	Count     int           `json:"count"`
	Rejected  int           `json:"rejected"`
	Threshold float64       `json:"threshold"`
	Duration  time.Duration `json:"duration"`
	OpenedAt  time.Time     `json:"opened_at"`
	ClosedAt  time.Time     `json:"closed_at"`
}

// Decide computes the outcome for a window's totals. Ties go to OutcomeB.
func Decide(w Window) (decision Decision, avgRoll, avgPitch float64) {
	if w.Count == 0 {
		return NoDecision, 0, 0
	}
	avgRoll = w.RollSum / float64(w.Count)
	avgPitch = w.PitchSum / float64(w.Count)
	if avgRoll < w.Threshold {
		return OutcomeA, avgRoll, avgPitch
	}
	return OutcomeB, avgRoll, avgPitch
}

// OutcomeListener receives closed-window outcomes.
type OutcomeListener interface {
	OnOutcome(Outcome)
}

// OutcomeFunc adapts a function to OutcomeListener.
type OutcomeFunc func(Outcome)

// OnOutcome calls f(o).
func (f OutcomeFunc) OnOutcome(o Outcome) { f(o) }
