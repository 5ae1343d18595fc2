package config

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed document or a missing required field.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	ErrMissingUpstream  = errors.New("upstream not found")
	ErrMissingCertFile  = errors.New("cert file does not exist")
	ErrMissingKeyFile   = errors.New("key file does not exist")
	ErrMissingCaFile    = errors.New("ca file does not exist")
	ErrEmptyBackendList = errors.New("upstream has no backends")
	ErrUnknownPolicy    = errors.New("unknown upstream policy")
)

// ValidationError reports why a RawConfig could not be resolved. Err is one
// of the Err* sentinels; Subject names the offending upstream or file path.
type ValidationError struct {
	Err     error
	Subject string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Subject)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, subject string) *ValidationError {
	return &ValidationError{Err: err, Subject: subject}
}
