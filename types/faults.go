package types

import "errors"

// Fault taxonomy shared by every package. Package level sentinels wrap one of
// these so callers can test the class with errors.Is.
var (
	ErrGeometry       = errors.New("geometry fault")
	ErrUnsupported    = errors.New("unsupported operation")
	ErrConfiguration  = errors.New("configuration fault")
	ErrTapeDiscipline = errors.New("tape discipline fault")
)
