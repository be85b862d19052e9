package pointcloud

import "github.com/edaniels/golog"

// Format is a sensor capture format the devkit can decode. There are exactly
// two implementations, LidarFormat and RadarFormat; code generic over the
// capture format, such as the sweep aggregator, must not special-case either.
type Format interface {
	// Dims returns the fixed channel row count of clouds in this format.
	Dims() int

	// DecodeFile reads the capture file at the given path into a cloud.
	DecodeFile(fn string, logger golog.Logger) (*Cloud, error)
}
