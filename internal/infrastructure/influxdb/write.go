package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/cinnamon-core/internal/motion"
)

// Measurement names.
const (
	MeasurementMotionSample  = "motion_sample"
	MeasurementMotionOutcome = "motion_outcome"
	MeasurementStageTiming   = "stage_timing"
)

// WriteMotionSample records one accepted sensor reading.
func (c *Client) WriteMotionSample(windowID string, r motion.Reading, at time.Time) {
	c.write(motionSamplePoint(c.siteID(), windowID, r, at))
}

// WriteMotionOutcome records a closed listening window.
func (c *Client) WriteMotionOutcome(o motion.Outcome) {
	c.write(motionOutcomePoint(c.siteID(), o))
}

// WriteStageTiming records how long the sequencer spent in one state of a stage.
func (c *Client) WriteStageTiming(runID, stage string, index int, state string, d time.Duration, at time.Time) {
	c.write(stageTimingPoint(c.siteID(), runID, stage, index, state, d, at))
}

func withSite(tags map[string]string, site string) map[string]string {
	if site != "" {
		tags["site"] = site
	}
	return tags
}

func motionSamplePoint(site, windowID string, r motion.Reading, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementMotionSample,
		withSite(map[string]string{"window_id": windowID}, site),
		map[string]any{"roll": r.Roll, "pitch": r.Pitch},
		at,
	)
}

func motionOutcomePoint(site string, o motion.Outcome) *write.Point {
	return write.NewPoint(
		MeasurementMotionOutcome,
		withSite(map[string]string{"decision": string(o.Decision)}, site),
		map[string]any{
			"window_id":   o.ID,
			"avg_roll":    o.AvgRoll,
			"avg_pitch":   o.AvgPitch,
			"count":       int64(o.Count),
			"rejected":    int64(o.Rejected),
			"threshold":   o.Threshold,
			"duration_ms": o.Duration.Milliseconds(),
		},
		o.ClosedAt,
	)
}

func stageTimingPoint(site, runID, stage string, index int, state string, d time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementStageTiming,
		withSite(map[string]string{"stage": stage, "state": state}, site),
		map[string]any{
			"run_id":      runID,
			"index":       int64(index),
			"duration_ms": d.Milliseconds(),
		},
		at,
	)
}
