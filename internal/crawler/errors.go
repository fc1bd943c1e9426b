package crawler

import "errors"

// Checkpoint errors. All of them are fatal to the crawl loop.
var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrCheckpointStorage  = errors.New("checkpoint storage failure")
	ErrCheckpointInvalid  = errors.New("checkpoint value invalid")
)

// Fetch errors. Every fetch failure is transient; a malformed body is a
// transient failure as well.
var (
	ErrTransientFetch    = errors.New("transient fetch failure")
	ErrMalformedResponse = errors.New("malformed catalog response")
)

// ErrEndOfSpace reports an empty batch past the configured end-of-space threshold.
var ErrEndOfSpace = errors.New("end of identifier space")

// ErrPublish wraps downstream queue failures. It never stops the crawl.
var ErrPublish = errors.New("publish failed")
