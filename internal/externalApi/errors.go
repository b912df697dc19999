package externalApi

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrBadResponse = errors.New("bad response from external api")
)
