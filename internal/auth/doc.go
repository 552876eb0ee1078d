// Package auth issues and verifies operator tokens for the control API.
//
// Tokens are HS256 JWTs carrying a subject and a Role. Two roles exist:
// observers may read status and subscribe to events, operators may also
// drive the experience. The role-permission table is static.
package auth
