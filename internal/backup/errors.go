package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned for input above MaxImportSize.
	ErrFileTooLarge = errors.New("backup file is too large")

	// ErrInvalidFormat is returned when the envelope lacks a required field.
	ErrInvalidFormat = errors.New("invalid backup format: expected version, exportDate and spellbooks")
)

// ParseError reports input that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse backup: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// VersionMismatchError reports an envelope written by an unsupported version.
type VersionMismatchError struct {
	Got  string
	Want string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("unsupported backup version %q (expected %q)", e.Got, e.Want)
}
