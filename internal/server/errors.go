package server

import "errors"

var (
	ErrNilViewer      = errors.New("inspector requires a viewer")
	ErrNilEventBus    = errors.New("inspector requires an event bus")
	ErrMissingAddr    = errors.New("inspector address is empty")
	ErrListenerFailed = errors.New("failed to create inspector listener")
)
