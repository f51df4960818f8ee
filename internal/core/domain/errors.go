package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoIdentity indicates a page yields no citation identity
	ErrNoIdentity = errors.New("no citation identity")

	// ErrInvalidTransition indicates a stage or status transition is not allowed
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrGateFailed indicates a pipeline stage gate check did not pass
	ErrGateFailed = errors.New("gate check failed")

	// ErrInvalidCondition indicates a classification rule condition is malformed
	ErrInvalidCondition = errors.New("invalid rule condition")

	// ErrCollaboratorUnavailable indicates the external extraction or
	// comparison service could not be reached
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
