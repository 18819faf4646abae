package service

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNoUpdates          = errors.New("no updates provided")
	ErrNotFound           = errors.New("not found")
)

// ValidationError reports rejected input. Fields maps field names to problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for _, msg := range e.Fields {
			return msg
		}
	}
	return "validation failed"
}

// LockedError is returned while an account is locked after repeated failed logins.
type LockedError struct {
	Remaining time.Duration
}

// Minutes is the remaining lock time rounded up to whole minutes.
func (e *LockedError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.Minutes())
}
