package atproto

import (
	"errors"
	"fmt"
)

// AuthError indicates the session could not be established. It is fatal to
// a run: nothing is fetched and nothing is mutated.
type AuthError struct {
	Identifier string
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Identifier, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError indicates a read call failed. Callers keep whatever was
// accumulated before the failure and surface the error as a warning.
type FetchError struct {
	Op  string // e.g. "app.bsky.graph.getFollowers"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BlockError indicates a single block-creation call failed. It is isolated
// to one candidate and never aborts the batch.
type BlockError struct {
	Subject DID
	Err     error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("create block for %s: %v", e.Subject, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
