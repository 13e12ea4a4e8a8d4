// ABOUTME: Error kinds returned by the alignment engine.
// ABOUTME: Callers match them with errors.Is to tell bad input from a broken provider.
package align

import "errors"

var (
	// ErrInvalidInput marks malformed caller input: mismatched lengths, duplicate ids,
	// non-finite scores, or out-of-range parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderFailure marks a similarity provider that errored or returned malformed output.
	ErrProviderFailure = errors.New("similarity provider failure")
)
