package common

import "errors"

// ErrStopped reports that a cancellable operation observed its stop flag.
var ErrStopped = errors.New("stopped")
