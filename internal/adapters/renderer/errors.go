package renderer

import "errors"

// Sentinel kinds for renderer errors.
var (
	// ErrAllRejected marks an update where no candidate shape was
	// accepted. The tempo model must be left unchanged so the next
	// sample re-evaluates from prior state.
	ErrAllRejected = errors.New("all tempo candidates rejected")

	// ErrRendererUnreachable marks a failure to reach the downstream
	// renderer endpoint.
	ErrRendererUnreachable = errors.New("renderer unreachable")
)
