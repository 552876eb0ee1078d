// Package panel serves the operator console: a single page that shows the
// live experience status and lets an operator start, stop and steer a run.
//
// The page is embedded with go:embed. It talks to the controller only
// through the public /api/v1 routes and the WebSocket event stream, so it
// can be replaced by pointing Handler at a directory during development.
package panel
