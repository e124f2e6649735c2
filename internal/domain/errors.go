package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnclosedRing     = errors.New("ring is not closed")
	ErrTooFewPoints     = errors.New("ring has fewer than 4 points")
	ErrCoordinateRange  = errors.New("coordinate outside longitude/latitude range")
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrDuplicateRegion  = errors.New("duplicate region identifier")
	ErrMissingRegion    = errors.New("region identifier is missing")
	ErrUnmappableStatus = errors.New("status cannot be mapped to a number")
	ErrInvalidCoords    = errors.New("invalid coordinates")
)

// Policy selects how per-item geometry and data errors are handled.
type Policy int

const (
	// SkipAndWarn drops the offending region or record and keeps going.
	SkipAndWarn Policy = iota
	// FailFast aborts on the first error.
	FailFast
)

// ParsePolicy accepts "skip" or "fail" (case-sensitive, as configured).
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "skip":
		return SkipAndWarn, nil
	case "fail":
		return FailFast, nil
	default:
		return SkipAndWarn, fmt.Errorf("unknown policy %q: want skip or fail", s)
	}
}

func (p Policy) String() string {
	if p == FailFast {
		return "fail"
	}
	return "skip"
}

// GeometryError reports a malformed or unparseable region geometry.
type GeometryError struct {
	RegionID string
	Err      error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry error in region %q: %v", e.RegionID, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// DataError reports a malformed or unmappable client record.
type DataError struct {
	Row      int
	RegionID string
	Field    string
	Err      error
}

func (e *DataError) Error() string {
	if e.RegionID == "" {
		return fmt.Sprintf("data error at row %d (%s): %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("data error at row %d, region %q (%s): %v", e.Row, e.RegionID, e.Field, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// IOError reports a missing, unreadable or unwritable file. It is always fatal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
