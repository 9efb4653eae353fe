package catalog

import "fmt"

// LoadError reports that the catalog resource could not be fetched.
type LoadError struct {
	Location   string
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("load spell catalog from %s: unexpected status %d", e.Location, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("load spell catalog from %s: %v", e.Location, e.Err)
	default:
		return fmt.Sprintf("load spell catalog from %s", e.Location)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError reports that the catalog resource was fetched but is malformed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse spell catalog: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
