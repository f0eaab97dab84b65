package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents different categories of errors
type ErrorKind int

const (
	ErrConfig ErrorKind = iota
	ErrInput
	ErrFormat
	ErrIO
	ErrDigest
	ErrSigning
)

// Messages shared between the components that raise them and the tests that
// look for them.
const (
	MsgMissingControlArchive = "missing control archive"
	MsgUnknownHashAlgorithm  = "unknown hash algorithm"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "Config"
	case ErrInput:
		return "Input"
	case ErrFormat:
		return "Format"
	case ErrIO:
		return "IO"
	case ErrDigest:
		return "Digest"
	case ErrSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// AptRepoError is the single error type surfaced by repository building
type AptRepoError struct {
	Kind ErrorKind
	Path string
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *AptRepoError) Error() string {
	parts := make([]string, 0, 3)
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, strings.Join(parts, ": "))
}

// Unwrap returns the wrapped error
func (e *AptRepoError) Unwrap() error {
	return e.Err
}

// NewError creates an error without an underlying cause
func NewError(kind ErrorKind, msg string) *AptRepoError {
	return &AptRepoError{Kind: kind, Msg: msg}
}

// WrapError creates an error around a cause, optionally tied to a path
func WrapError(kind ErrorKind, path, msg string, err error) *AptRepoError {
	return &AptRepoError{Kind: kind, Path: path, Msg: msg, Err: err}
}

// IsKind reports whether any AptRepoError in err's chain has the given kind
func IsKind(err error, kind ErrorKind) bool {
	var repoErr *AptRepoError
	for err != nil {
		if !errors.As(err, &repoErr) {
			return false
		}
		if repoErr.Kind == kind {
			return true
		}
		err = repoErr.Err
	}
	return false
}
