//go:build !windows

package windowctx

import "errors"

// ErrUnsupportedPlatform is returned by the stub query on platforms without
// a window-management implementation. Callers degrade to "nothing captured";
// there is no silent best-guess fallback.
var ErrUnsupportedPlatform = errors.New("window query not supported on this platform")

type stubQuery struct{}

// NewQuery returns the failing stub on non-Windows platforms.
func NewQuery() Query {
	return stubQuery{}
}

func (stubQuery) Active() (*Context, error) {
	return nil, ErrUnsupportedPlatform
}

func (stubQuery) Focus(uintptr) error {
	return ErrUnsupportedPlatform
}
