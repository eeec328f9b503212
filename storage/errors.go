package storage

import "fmt"

// LoadError reports a dataset that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MissingColumnError reports a required column absent from a source.
type MissingColumnError struct {
	Column string
	Source string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q in %s", e.Column, e.Source)
}

func loadErr(path string, err error) error {
	return &LoadError{Path: path, Err: err}
}
