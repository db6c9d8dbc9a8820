package services

import "errors"

// Error categories. Every error returned by a service matches exactly one of them with errors.Is.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrNotFound           = errors.New("requested resource not found")
	ErrConflict           = errors.New("operation conflicts with current state")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrStorage            = errors.New("storage failure")
)

// serviceError is a specific error that also matches its category.
type serviceError struct {
	msg      string
	category error
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.category }

func newError(category error, msg string) error {
	return &serviceError{msg: msg, category: category}
}

var (
	ErrMissingScores          = newError(ErrValidationFailed, "both player scores are required")
	ErrNegativeScore          = newError(ErrValidationFailed, "scores must not be negative")
	ErrInvalidMatchSource     = newError(ErrValidationFailed, "match source must be 'played' or 'manual'")
	ErrTournamentNameRequired = newError(ErrValidationFailed, "tournament name is required")
	ErrInvalidMaxPlayers      = newError(ErrValidationFailed, "tournament max players must be at least 2")
	ErrActorRequired          = newError(ErrValidationFailed, "an authenticated user is required")
	ErrNotEnoughParticipants  = newError(ErrValidationFailed, "at least 2 participants are required to start")
	ErrInvalidRound           = newError(ErrValidationFailed, "round must be a positive integer")

	ErrTournamentNotFound = newError(ErrNotFound, "tournament not found")
	ErrMatchNotFound      = newError(ErrNotFound, "match not found")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")

	ErrAlreadyRegistered    = newError(ErrConflict, "user is already registered for this tournament")
	ErrTournamentFull       = newError(ErrConflict, "tournament registration is full")
	ErrTournamentFinished   = newError(ErrConflict, "tournament is already finished")
	ErrTournamentNotOngoing = newError(ErrConflict, "tournament is not ongoing")
	ErrTournamentStarted    = newError(ErrConflict, "tournament has already started")
	ErrMatchNotPending      = newError(ErrConflict, "match is not pending")

	ErrOrganizerOnly = newError(ErrForbiddenOperation, "only the tournament organizer can perform this action")

	// ErrRoundAdvanceFailed means the result was stored but the next round was not; the
	// advance endpoint retries it.
	ErrRoundAdvanceFailed = newError(ErrStorage, "match result saved but advancing the round failed")
)
