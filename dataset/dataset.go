// Package dataset describes the record catalog a perception dataset exposes:
// sensor frame records, ego poses and sensor calibrations, all keyed by token.
// The catalog itself is an external service; this package defines the records
// the devkit consumes and a map-backed implementation for tests and tools.
package dataset

import "github.com/pkg/errors"

// ErrRecordNotFound is returned when a token does not resolve to a record.
var ErrRecordNotFound = errors.New("record not found")

// SampleData identifies one sensor capture (a sweep) on one channel. Prev
// links to the chronologically preceding capture on the same channel and is
// empty at the start of the chain.
type SampleData struct {
	Token                 string
	Filename              string
	Timestamp             int64 // microseconds since epoch
	EgoPoseToken          string
	CalibratedSensorToken string
	Prev                  string
}

// EgoPose is the vehicle's position and orientation in the global frame at a
// given timestamp.
type EgoPose struct {
	Token       string
	Timestamp   int64 // microseconds since epoch
	Translation [3]float64
	Rotation    [4]float64 // w, x, y, z
}

// CalibratedSensor is the fixed mounting transform from a sensor to the
// vehicle's ego frame.
type CalibratedSensor struct {
	Token       string
	SensorToken string
	Translation [3]float64
	Rotation    [4]float64 // w, x, y, z
}

// Sample is one annotated snapshot of the scene, mapping channel names to the
// sample data tokens captured closest to the sample timestamp.
type Sample struct {
	Token     string
	Timestamp int64 // microseconds since epoch
	Data      map[string]string
}

// Catalog resolves record tokens to records. Implementations are expected to
// be read-only; the devkit never writes through a catalog.
type Catalog interface {
	// SampleData returns the sensor frame record for the given token.
	SampleData(token string) (SampleData, error)

	// EgoPose returns the ego pose record for the given token.
	EgoPose(token string) (EgoPose, error)

	// CalibratedSensor returns the sensor calibration record for the given token.
	CalibratedSensor(token string) (CalibratedSensor, error)

	// DataPath returns the root directory sensor filenames are relative to.
	DataPath() string
}
