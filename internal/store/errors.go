package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrTerminalRecord = errors.New("record is in a terminal status")
)
