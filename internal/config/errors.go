package config

import (
	"errors"
	"fmt"
)

// ErrProfileExists is returned by Init when a profile is already present.
var ErrProfileExists = errors.New("profile already exists")

// ValidationError reports a profile field with an unusable value.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile: %s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ProfileError wraps a failure to read or write a profile file.
type ProfileError struct {
	Path string
	Op   string
	Err  error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("%s profile %s: %v", e.Op, e.Path, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}
