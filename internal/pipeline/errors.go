package pipeline

import "errors"

var (
	// ErrNoVideoStream is returned when the input container carries no
	// video stream.
	ErrNoVideoStream = errors.New("input has no video stream")

	// ErrNoEncoderAvailable is returned when every candidate in the
	// attempt plan was rejected during negotiation.
	ErrNoEncoderAvailable = errors.New("no video encoder could be opened")

	// ErrCancelled marks a run stopped by its context before completion.
	ErrCancelled = errors.New("run cancelled")
)
