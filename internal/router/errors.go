package router

import (
	"errors"
	"fmt"
)

var (
	ErrNoHostHeader     = errors.New("no host header")
	ErrUnknownHost      = errors.New("unknown host")
	ErrNoHealthyBackend = errors.New("no healthy backend")
)

// RoutingError describes a failed routing decision. Err is one of the
// sentinels above.
type RoutingError struct {
	Err      error
	Host     string
	Upstream string
}

func (e *RoutingError) Error() string {
	switch {
	case e.Upstream != "":
		return fmt.Sprintf("%v: upstream %q", e.Err, e.Upstream)
	case e.Host != "":
		return fmt.Sprintf("%v: %q", e.Err, e.Host)
	default:
		return e.Err.Error()
	}
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}
