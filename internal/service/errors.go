package service

import "errors"

var (
	ErrNotFound           = errors.New("error not found")
	ErrUnauthenticated    = errors.New("error unauthenticated")
	ErrForbidden          = errors.New("error forbidden")
	ErrInvalidCredentials = errors.New("error invalid credentials")
	ErrAlreadyExists      = errors.New("error already exists")
	ErrValidation         = errors.New("error validation")
)
