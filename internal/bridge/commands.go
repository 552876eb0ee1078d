package bridge

import "github.com/nerrad567/cinnamon-core/internal/spatial"

// Cue actions.
const (
	CueActionPlay = "play"
	CueActionStop = "stop"
)

// Scene actions.
const (
	SceneActionLoad = "load"
	SceneActionQuit = "quit"
)

// CueCommand plays or stops one instance of a cue, optionally on a scene
// object.
type CueCommand struct {
	Action   string `json:"action"`
	Cue      string `json:"cue"`
	Instance string `json:"instance"`
	Target   string `json:"target,omitempty"`
}

// SpawnCommand places a prefab instance.
type SpawnCommand struct {
	Instance string           `json:"instance"`
	Prefab   string           `json:"prefab"`
	Position spatial.Vec3     `json:"position"`
	Rotation spatial.Rotation `json:"rotation"`
	Parent   string           `json:"parent,omitempty"`
}

// DespawnCommand removes a prefab instance.
type DespawnCommand struct {
	Instance string `json:"instance"`
}

// OpacityCommand sets a surface's alpha in [0, 1].
type OpacityCommand struct {
	ID    string  `json:"id"`
	Alpha float64 `json:"alpha"`
}

// VisibleCommand shows or hides a surface.
type VisibleCommand struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// ActiveCommand enables or disables a scene object.
type ActiveCommand struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// TextCommand replaces a caption's text.
type TextCommand struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SceneCommand loads a scene or quits the application.
type SceneCommand struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
}

// DisplayCommand overwrites the message display.
type DisplayCommand struct {
	Text string `json:"text"`
}
