package utils

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDatabaseError       = errors.New("database error")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnknownTravelType   = errors.New("unknown travel type")
	ErrMissingLocation     = errors.New("location is required")
	ErrStateConflict       = errors.New("account state conflict")
	ErrUnsupportedResource = errors.New("unsupported sync resource")

	ErrUnexpectedBehaviorOfAI = errors.New("unexpected behavior of embedding provider")
)
