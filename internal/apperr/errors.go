package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidBlock  = errors.New("invalid block")
	ErrInvalidRange  = errors.New("invalid line range")
)
