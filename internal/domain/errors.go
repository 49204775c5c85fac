package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEndpoint is returned when the bridge host is blank or cannot be parsed.
	ErrInvalidEndpoint = errors.New("kioskbridge: invalid endpoint")
	// ErrNotConnected is returned by sends issued while no connection is live.
	ErrNotConnected = errors.New("kioskbridge: not connected")
	// ErrConnectionClosed is returned by sends on a connection that has been closed.
	ErrConnectionClosed = errors.New("kioskbridge: connection closed")
	// ErrSupervisorStopped is returned when a manually disconnected supervisor is restarted.
	ErrSupervisorStopped = errors.New("kioskbridge: supervisor stopped")
)

// ConnectError wraps a dial or handshake failure.
type ConnectError struct {
	Protocol string
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s connect %s: %v", e.Protocol, e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
