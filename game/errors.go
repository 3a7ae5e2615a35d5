package game

import "errors"

// Arena errors.
var (
	ErrConfigParse        = errors.New("malformed maze config")
	ErrInvariantViolation = errors.New("arena invariant violation")
	ErrSpawnExhausted     = errors.New("spawn attempts exhausted")
	ErrUnknownEventKind   = errors.New("unknown reward event kind")
	ErrUnknownEntity      = errors.New("unknown entity")
	ErrNotRunning         = errors.New("episode is not running")
	ErrAlreadyConstructed = errors.New("arena already constructed")
	ErrMoveNotPermitted   = errors.New("move request not permitted")
	ErrUnsupportedMode    = errors.New("behavioural pattern not supported")
)
