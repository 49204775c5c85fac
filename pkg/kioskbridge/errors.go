package kioskbridge

import (
	"errors"

	"github.com/ghalamif/kioskbridge/internal/domain"
)

var (
	ErrInvalidEndpoint  = domain.ErrInvalidEndpoint
	ErrNotConnected     = domain.ErrNotConnected
	ErrConnectionClosed = domain.ErrConnectionClosed
	ErrAlreadyStarted   = errors.New("kioskbridge: runtime already started")
	ErrRuntimeStopped   = errors.New("kioskbridge: runtime shut down")
)

type ConnectError = domain.ConnectError
