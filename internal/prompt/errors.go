package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrNoOption is returned when a select prompt yields no valid choice.
	ErrNoOption = errors.New("prompt: no option selected")
)
