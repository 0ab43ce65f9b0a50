package handler

import (
	"errors"
)

const (
	// RootPath is the root path the route group.
	RootPath = "/"
)

// ErrNilAppOrConfig is returned by Init if app or cfg is nil.
var ErrNilAppOrConfig = errors.New("app or cfg is nil")
