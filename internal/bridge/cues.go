package bridge

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/cinnamon-core/internal/entry"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Cues plays catalogued cues on the headset. Completion is timed on the
// scheduler from the catalogued duration.
type Cues struct {
	sched   *timeline.Scheduler
	out     Sender
	logger  Logger
	catalog map[string]time.Duration
	pending map[*cueInstance]struct{}
}

// NewCues creates a cue player over catalog (cue id → duration).
func NewCues(sched *timeline.Scheduler, out Sender, catalog map[string]time.Duration, logger Logger) *Cues {
	if logger == nil {
		logger = noopLogger{}
	}
	c := &Cues{
		sched:   sched,
		out:     out,
		logger:  logger,
		catalog: make(map[string]time.Duration, len(catalog)),
		pending: make(map[*cueInstance]struct{}),
	}
	for id, d := range catalog {
		c.catalog[id] = d
	}
	return c
}

// Duration returns a cue's catalogued length.
func (c *Cues) Duration(id string) (time.Duration, bool) {
	d, ok := c.catalog[id]
	return d, ok
}

// Play starts one instance of cue and calls done once its duration has
// elapsed. An unknown cue returns ErrUnknownCue and done is never called.
// Stopping the returned playback affects this instance only.
func (c *Cues) Play(cue sequence.Cue, done func()) (sequence.Playback, error) {
	p, err := c.start(cue, done)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Cues) start(cue sequence.Cue, done func()) (*cueInstance, error) {
	d, ok := c.catalog[cue.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCue, cue.ID)
	}
	p := &cueInstance{cues: c, id: uuid.New().String(), cue: cue}
	c.send(CueActionPlay, p)

	p.timer = c.sched.After(d, func() {
		delete(c.pending, p)
		if done != nil {
			done()
		}
	})
	c.pending[p] = struct{}{}
	return p, nil
}

// Playing returns the number of cue instances still running.
func (c *Cues) Playing() int {
	return len(c.pending)
}

func (c *Cues) send(action string, p *cueInstance) {
	cmd := CueCommand{Action: action, Cue: p.cue.ID, Instance: p.id, Target: p.cue.Target}
	if err := c.out.Send(mqtt.Topics{}.Command(mqtt.CommandCue), cmd, false); err != nil {
		c.logger.Warn("cue command not sent", "action", action, "cue", p.cue.ID, "instance", p.id, "error", err)
	}
}

type cueInstance struct {
	cues  *Cues
	id    string
	cue   sequence.Cue
	timer *timeline.Timer
}

// Stop halts the instance and drops its done callback. It is a no-op once
// the cue has finished or been stopped.
func (p *cueInstance) Stop() {
	if !p.timer.Stop() {
		return
	}
	delete(p.cues.pending, p)
	p.cues.send(CueActionStop, p)
}

// Audio exposes Cues through the entry tracker's audio player contract.
type Audio struct {
	*Cues
}

// Play starts the audio cue id.
func (a Audio) Play(id string, done func()) (entry.Playback, error) {
	p, err := a.Cues.start(sequence.Cue{ID: id}, done)
	if err != nil {
		return nil, err
	}
	return p, nil
}
