package scheduler

import "errors"

var (
	ErrLoopBusy      = errors.New("loop already running a pass")
	ErrUnknownLoop   = errors.New("unknown loop")
	ErrInvalidPeriod = errors.New("interval must be positive")
	ErrNotStarted    = errors.New("scheduler not started")
)
