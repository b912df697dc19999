package repository

import "errors"

// Storage-level errors. Services translate them into their own errors before they reach transport.
var (
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record not found")
)
