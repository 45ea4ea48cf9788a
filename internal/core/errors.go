package core

import "errors"

var (
	// ErrNotFound is returned when a message or queue entry does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when inserting a message whose id already exists
	ErrDuplicate = errors.New("message already stored")
)
