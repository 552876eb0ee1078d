package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/cinnamon-core/internal/spatial"
)

// Anchor is one labelled scene anchor reported by the headset.
type Anchor struct {
	Handle   string        `json:"handle"`
	Label    spatial.Label `json:"label"`
	Position spatial.Vec3  `json:"position"`
	// Extent is the anchor's bounding radius.
	Extent float64 `json:"extent"`
}

// AnchorReport is the payload on cinnamon/headset/anchors.
type AnchorReport struct {
	Hand    spatial.Vec3 `json:"hand"`
	Anchors []Anchor     `json:"anchors"`
}

// Anchors caches the latest headset report and answers proximity queries.
type Anchors struct {
	report AnchorReport
	seen   bool
}

// NewAnchors creates an empty anchor cache.
func NewAnchors() *Anchors {
	return &Anchors{}
}

// Apply replaces the cached report. Labels are normalised.
func (a *Anchors) Apply(r AnchorReport) {
	anchors := make([]Anchor, len(r.Anchors))
	for i, an := range r.Anchors {
		an.Label = spatial.ParseLabel(string(an.Label))
		anchors[i] = an
	}
	a.report = AnchorReport{Hand: r.Hand, Anchors: anchors}
	a.seen = true
}

// HandPosition returns the last reported hand position.
func (a *Anchors) HandPosition() spatial.Vec3 {
	return a.report.Hand
}

// Reported reports whether any anchor report has arrived.
func (a *Anchors) Reported() bool {
	return a.seen
}

// Snapshot returns a copy of the cached report.
func (a *Anchors) Snapshot() AnchorReport {
	r := a.report
	r.Anchors = append([]Anchor(nil), a.report.Anchors...)
	return r
}

// FindNearby returns anchors whose bounds come within radius of pos, in
// report order.
func (a *Anchors) FindNearby(pos spatial.Vec3, radius float64) []spatial.Detection {
	var out []spatial.Detection
	for _, an := range a.report.Anchors {
		if spatial.Distance(pos, an.Position) <= radius+an.Extent {
			out = append(out, spatial.Detection{Label: an.Label, Handle: an.Handle})
		}
	}
	return out
}

// DecodeAnchorReport parses an anchor report payload.
func DecodeAnchorReport(payload []byte) (AnchorReport, error) {
	var r AnchorReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return AnchorReport{}, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return r, nil
}

// SubscribeAnchors forwards every headset anchor report to a on the engine loop.
func SubscribeAnchors(sub Subscriber, qos byte, loop Poster, a *Anchors, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	return sub.Subscribe(mqtt.Topics{}.HeadsetAnchors(), qos, func(_ string, payload []byte) error {
		r, err := DecodeAnchorReport(payload)
		if err != nil {
			return err
		}
		if err := loop.Post(func() { a.Apply(r) }); err != nil {
			logger.Warn("anchor report dropped", "error", err)
		}
		return nil
	})
}
