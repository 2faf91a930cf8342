package ledger

import "errors"

var (
	ErrInvalidTransition  = errors.New("event is not allowed in the current match state")
	ErrInvalidScore       = errors.New("invalid score")
	ErrNotAParticipant    = errors.New("actor is not a participant of this match")
	ErrSelfConfirmation   = errors.New("the reporting participant cannot confirm or contest their own report")
	ErrAlreadyReported    = errors.New("a different result has already been reported for this match")
	ErrAlreadyFinalized   = errors.New("match result has already been finalized by another action")
	ErrDisputeAlreadyOpen = errors.New("an open dispute already exists for this match")
	ErrUnknownStatus      = errors.New("unknown match status")
)
