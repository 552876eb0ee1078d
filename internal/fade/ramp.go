package fade

import (
	"time"

	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Lerp interpolates from a to b by t, with t clamped into [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp01(t)
}

// Ramp interpolates from one value to another over d, calling set once per
// scheduler frame. The first step lands one frame after the call and the
// final step is always exactly to. done, if non-nil, runs after the final
// step. A non-positive d sets to and calls done synchronously.
//
// The returned timer is nil when the ramp completed synchronously.
func Ramp(scope *timeline.Scope, from, to float64, d time.Duration, set func(float64), done func()) *timeline.Timer {
	if d <= 0 {
		set(to)
		if done != nil {
			done()
		}
		return nil
	}

	sched := scope.Scheduler()
	start := sched.Now()
	return scope.Every(sched.Frame(), func() bool {
		elapsed := sched.Now().Sub(start)
		if elapsed >= d {
			set(to)
			if done != nil {
				done()
			}
			return false
		}
		set(Lerp(from, to, float64(elapsed)/float64(d)))
		return true
	})
}
