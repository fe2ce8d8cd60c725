package export

import (
	"errors"
	"fmt"
)

// Stage names a step of the export state machine
type Stage string

const (
	StageOpenTarget        Stage = "open_target"
	StageEnsureDestination Stage = "ensure_destination"
	StageAppendRow         Stage = "append_row"
	StageVerifyWrite       Stage = "verify_write"
)

// ErrNotFound is returned by stores when a spreadsheet or sheet does not exist
var ErrNotFound = errors.New("not found")

// Error is the failure of one export stage
type Error struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("export failed at %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("export failed at %s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
