package dispatch

import "errors"

var ErrAlreadyRunning = errors.New("dispatch: already running")
