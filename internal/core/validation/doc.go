// Package validation contains pure validation logic for untyped request
// payloads. This is part of the Functional Core - no I/O, no side effects.
//
// Payloads arrive as decoded JSON of unknown shape and are checked against
// an explicit schema. All violations are collected, not just the first, so
// callers can render a complete error message for the client.
package validation
