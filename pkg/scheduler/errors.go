package scheduler

import "errors"

// Sentinel errors returned by scheduler operations.
var (
	ErrRoutineExists       = errors.New("routine already exists")
	ErrContextClosed       = errors.New("processor context is shut down")
	ErrUnknownPolicy       = errors.New("unknown scheduler policy")
	ErrInvalidProcessorNum = errors.New("invalid processor number")
)
