package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrInvalidGeometry is returned when a geometric entity is constructed from
// values that cannot describe a valid shape, such as NaN dimensions or an
// orientation that is not a unit quaternion.
var ErrInvalidGeometry = errors.New("invalid geometry")

func newBadBoxCenterError(center r3.Vector) error {
	return errors.Wrapf(ErrInvalidGeometry, "box center must have finite x, y, z, got %v", center)
}

func newBadBoxSizeError(size r3.Vector) error {
	return errors.Wrapf(ErrInvalidGeometry, "box size must have finite non-negative width, length, height, got %v", size)
}

func newBadOrientationError() error {
	return errors.Wrap(ErrInvalidGeometry, "box orientation must be a unit quaternion")
}
