// Package api implements the HTTP control API and WebSocket event stream
// for the Cinnamon controller.
//
// This package provides:
//   - REST endpoints to start and steer the experience and read its status
//   - Run and outcome history from the SQLite repositories
//   - WebSocket hub broadcasting engine events to dashboards
//   - Bearer token authentication for mutating routes
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Handlers never touch engine state directly. Every operation goes through
// the Experience interface, which hops onto the engine loop, so the API can
// serve many concurrent requests against a single-threaded engine.
//
// # Security
//
// When security.jwt.secret is empty the API is open, which suits a
// bench setup. With a secret, POST routes need an operator token.
package api
