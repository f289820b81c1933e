package talkio_errors

import (
	"errors"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyConnected   = errors.New("already connected")
	ErrNoIdentity         = errors.New("no user identity")
	ErrCallInProgress     = errors.New("call already in progress")
	ErrNoActiveCall       = errors.New("no active call")
	ErrConflict           = errors.New("conflict")
	ErrTooLarge           = errors.New("payload too large")
	ErrServiceUnavailable = errors.New("service unavailable")
)
