// Package spatial holds the small geometric and semantic vocabulary shared
// by the sequencer, the spawner and the headset bridge: positions, semantic
// labels, anchor detections and spawn descriptors.
package spatial
