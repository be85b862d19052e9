package pointcloud

import "github.com/pkg/errors"

// Decode and construction failures are fatal to the current operation and are
// surfaced to the caller immediately; nothing is retried and no partial cloud
// is ever returned. Callers decide whether to abort or skip a frame.
var (
	// ErrShapeMismatch is returned when a point matrix does not have the row
	// count its format requires.
	ErrShapeMismatch = errors.New("point matrix shape mismatch")

	// ErrUnsupportedFormat is returned when a file does not carry the marker
	// (extension) of the format being decoded.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformedHeader is returned when a structured header is missing a
	// required field or violates one of its literal constraints.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrUnsupportedFieldEncoding is returned when a header declares a field
	// type and byte size with no known decode primitive.
	ErrUnsupportedFieldEncoding = errors.New("unsupported field encoding")

	// ErrTruncatedPayload is returned when a binary body is shorter than its
	// header implies.
	ErrTruncatedPayload = errors.New("truncated payload")
)

func newShapeMismatchError(want, got int) error {
	return errors.Wrapf(ErrShapeMismatch, "point matrix must have %d rows, got %d", want, got)
}
