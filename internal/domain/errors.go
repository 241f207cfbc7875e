package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrStorage             = errors.New("storage error")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrUnregisteredHandler = errors.New("no handler registered")
	ErrHandlerTimeout      = errors.New("job timed out")
)
