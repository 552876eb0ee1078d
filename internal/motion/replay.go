package motion

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// ReplayResult summarises an offline replay.
type ReplayResult struct {
	Outcome Outcome `json:"outcome"`
	Lines   int     `json:"lines"`
	Late    int     `json:"late"`
}

// Replay feeds a recorded message log through a fresh accumulator on its
// own scheduler and returns the outcome.
//
// Each line is one raw message. A line may begin with a duration offset
// from the window start ("12.5s roll = 1, pitch = 2"); offsets move the
// clock forward and never back. Lines past the window end count as late.
func Replay(r io.Reader, duration time.Duration, threshold float64, logger Logger) (*ReplayResult, error) {
	sched := timeline.NewScheduler(time.Unix(0, 0).UTC(), timeline.DefaultFrame)

	var out *Outcome
	acc, err := New(Deps{
		Scheduler: sched,
		Logger:    logger,
		Listeners: []OutcomeListener{OutcomeFunc(func(o Outcome) { out = &o })},
	})
	if err != nil {
		return nil, err
	}
	if _, err := acc.BeginWindow(duration, threshold); err != nil {
		return nil, err
	}

	res := &ReplayResult{}
	var elapsed time.Duration

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res.Lines++

		if offset, rest, ok := splitOffset(line); ok {
			if offset > elapsed {
				sched.Advance(offset - elapsed)
				elapsed = offset
			}
			line = rest
		}

		if err := acc.OnMessage(line); errors.Is(err, ErrNotListening) {
			res.Late++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replay input: %w", err)
	}

	if acc.Listening() {
		sched.Advance(duration - elapsed)
	}
	if out == nil {
		return nil, errors.New("motion: replay produced no outcome")
	}
	res.Outcome = *out
	return res, nil
}

func splitOffset(line string) (time.Duration, string, bool) {
	head, rest, found := strings.Cut(line, " ")
	if !found {
		return 0, line, false
	}
	d, err := time.ParseDuration(head)
	if err != nil || d < 0 {
		return 0, line, false
	}
	return d, strings.TrimSpace(rest), true
}
