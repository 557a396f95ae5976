package session

import "errors"

var (
	// ErrPermissionDenied is user-facing and recoverable by re-prompting.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrStreamUnsupported is fatal for the session and surfaced at Start.
	ErrStreamUnsupported = errors.New("position stream unsupported")

	// ErrEmptySession rejects saving a session that never accepted a fix.
	ErrEmptySession = errors.New("session has no accepted samples")

	// ErrInvalidIncrement guards the accumulator against negative distance.
	// The filter never produces one; treated as fatal-to-log, not fatal-to-process.
	ErrInvalidIncrement = errors.New("negative distance increment")

	ErrSessionActive = errors.New("a session is already active")
	ErrNoSession     = errors.New("no session in progress")
)
