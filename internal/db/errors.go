package db

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound signals a missing or expired key.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names carried by Error.
const (
	OpGet  = "GET"
	OpSet  = "SET"
	OpDel  = "DEL"
	OpPing = "PING"
)

// Error is a failed store command. Key is empty for keyless commands.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("db %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("db %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
