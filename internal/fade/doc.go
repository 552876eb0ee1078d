// Package fade implements frame-stepped opacity ramps on the timeline
// scheduler, plus Material, a self-contained fading surface.
package fade
