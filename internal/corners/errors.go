package corners

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidOutcome = errors.New("invalid outcome")
	ErrInvalidScore   = errors.New("invalid score")

	// ErrRemote marks a failure of the durable store rather than a rejected action.
	ErrRemote = errors.New("store unavailable")

	ErrAlreadyComplete = fmt.Errorf("%w: rotation already complete", ErrInvalidState)
	ErrNotCompleted    = fmt.Errorf("%w: station not completed", ErrInvalidState)
	ErrConflict        = fmt.Errorf("%w: progress changed concurrently", ErrInvalidState)
)
