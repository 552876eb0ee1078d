package spatial

import (
	"math"
	"strings"
	"time"
)

// Vec3 is a position or offset in metres, in headset world space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the distance between two points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Length()
}

// Label is a semantic tag on a scene anchor.
type Label string

// Known semantic labels. Anything else is treated as LabelOther.
const (
	LabelFloor   Label = "FLOOR"
	LabelCeiling Label = "CEILING"
	LabelLamp    Label = "LAMP"
	LabelOther   Label = "OTHER"
)

// DefaultLabel is the label a stage waits for when none is configured.
const DefaultLabel = LabelLamp

// ParseLabel maps a configured label name onto a known label.
// Matching is case-sensitive after trimming; unknown names map to LabelOther.
func ParseLabel(s string) Label {
	switch Label(strings.TrimSpace(s)) {
	case LabelFloor:
		return LabelFloor
	case LabelCeiling:
		return LabelCeiling
	case LabelLamp:
		return LabelLamp
	default:
		return LabelOther
	}
}

// Detection is one anchor reported near a probe position.
type Detection struct {
	Label  Label  `json:"label"`
	Handle string `json:"handle"`
}

// Rotation is a yaw/pitch/roll orientation in degrees.
type Rotation struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// DefaultDestroyDelay is used when DestroyAfter is requested without a delay.
const DefaultDestroyDelay = 5 * time.Second

// SpawnDescriptor describes an object to place into the scene.
type SpawnDescriptor struct {
	// Prefab is the headset-side asset id. Empty means nothing to spawn.
	Prefab string `json:"prefab" yaml:"prefab"`

	// Offset is added to the spawn anchor position.
	Offset Vec3 `json:"offset" yaml:"offset"`

	// RandomRotation spins the object to a random yaw in [0, 360).
	RandomRotation bool `json:"random_rotation,omitempty" yaml:"random_rotation"`

	// AsChild parents the object to the spawn anchor.
	AsChild bool `json:"as_child,omitempty" yaml:"as_child"`

	// DestroyAfter removes the object after DestroyDelay.
	DestroyAfter bool `json:"destroy_after,omitempty" yaml:"destroy_after"`

	// DestroyDelay defaults to DefaultDestroyDelay.
	DestroyDelay time.Duration `json:"destroy_delay,omitempty" yaml:"destroy_delay"`
}

// Empty reports whether the descriptor names no prefab.
func (d SpawnDescriptor) Empty() bool {
	return strings.TrimSpace(d.Prefab) == ""
}
