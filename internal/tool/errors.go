package tool

import "errors"

var (
	// ErrToolNotFound means the requested tool name is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidArguments means a required argument field is missing or the
	// argument payload is not valid JSON.
	ErrInvalidArguments = errors.New("invalid arguments")
)
