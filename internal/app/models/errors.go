package models

import "errors"

// Domain specific errors shared by repositories, services and handlers.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")

	// ErrTerminalState is returned when a place suggestion that has already
	// been implemented receives another processing action.
	ErrTerminalState = errors.New("item is in a terminal state")

	// ErrNoSuggestion means no suggestion qualifies for the user right now.
	// Handlers report it as a successful empty answer.
	ErrNoSuggestion = errors.New("no suggestion available")
)
