package release

import (
	"errors"
	"fmt"
)

// Sentinel errors for the release selection pipeline. All are checked
// with errors.Is by the command layer to pick exit codes and messages.
var (
	// ErrUnknownEnvironment is returned when the requested environment
	// key is not configured.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrIdentifierTooShort is returned when a partial revision id has
	// fewer than MinIdentifierLength characters.
	ErrIdentifierTooShort = errors.New("commit identifier too short")

	// ErrNoMatchingArtifact is returned when no published artifact's
	// revision id starts with the given identifier.
	ErrNoMatchingArtifact = errors.New("no matching artifact")

	// ErrEmptyCatalog is returned when nothing has been deployed yet.
	// It is a normal early exit, not a failure: the operator is told to
	// deploy first.
	ErrEmptyCatalog = errors.New("no artifacts deployed yet")

	// ErrCancelled is returned when the operator declines a
	// confirmation. Nothing has been mutated when it is returned.
	ErrCancelled = errors.New("release cancelled")
)

// ActivationError reports a failed release mutation. The pointer write
// (or remote invocation) did not take effect; no notification is sent.
type ActivationError struct {
	Environment string
	Err         error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activate %s: %v", e.Environment, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}
