package pointcloud

import (
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/aevlab/drivekit/dataset"
	"github.com/aevlab/drivekit/spatialmath"
)

const (
	// DefaultNumSweeps bounds how far back the aggregator walks a channel's
	// capture chain.
	DefaultNumSweeps = 26

	// DefaultMinDistance is the proximity pruning radius applied to every
	// transformed sweep.
	DefaultMinDistance = 1.0
)

// SweepOptions configures multi-sweep aggregation. The zero value selects
// the defaults.
type SweepOptions struct {
	NumSweeps   int
	MinDistance float64
}

func (o SweepOptions) withDefaults() SweepOptions {
	if o.NumSweeps <= 0 {
		o.NumSweeps = DefaultNumSweeps
	}
	if o.MinDistance <= 0 {
		o.MinDistance = DefaultMinDistance
	}
	return o
}

// AggregateSweeps merges up to NumSweeps captures from the given channel into
// the reference channel's frame at the given sample. Every capture lives in
// its own sensor frame at its own timestamp, so each one is mapped through
// its local ego pose into the global frame and back down into the reference
// sensor frame, then pruned of points near the sensor.
//
// The second return value is a per-point time lag vector parallel to the
// aggregate's columns: referenceTime minus the point's capture time, in
// seconds, so older sweeps carry positive lags and the reference capture
// itself carries zero.
//
// The walk follows each capture's Prev link and stops early when a capture
// has no predecessor.
func AggregateSweeps(
	cat dataset.Catalog,
	sample dataset.Sample,
	format Format,
	channel, refChannel string,
	opts SweepOptions,
	logger golog.Logger,
) (*Cloud, []float64, error) {
	opts = opts.withDefaults()

	refToken, ok := sample.Data[refChannel]
	if !ok {
		return nil, nil, errors.Errorf("sample %q has no data for reference channel %q", sample.Token, refChannel)
	}
	refSD, err := cat.SampleData(refToken)
	if err != nil {
		return nil, nil, err
	}
	refPose, err := cat.EgoPose(refSD.EgoPoseToken)
	if err != nil {
		return nil, nil, err
	}
	refCS, err := cat.CalibratedSensor(refSD.CalibratedSensorToken)
	if err != nil {
		return nil, nil, err
	}
	refTime := 1e-6 * float64(refSD.Timestamp)

	// The reference side of the transform chain never changes across sweeps,
	// so both inverse transforms are built once, outside the loop.
	refFromCar := spatialmath.NewTransformMatrix(recordVector(refCS.Translation), recordQuat(refCS.Rotation), true)
	carFromGlobal := spatialmath.NewTransformMatrix(recordVector(refPose.Translation), recordQuat(refPose.Rotation), true)

	sourceToken, ok := sample.Data[channel]
	if !ok {
		return nil, nil, errors.Errorf("sample %q has no data for channel %q", sample.Token, channel)
	}
	current, err := cat.SampleData(sourceToken)
	if err != nil {
		return nil, nil, err
	}

	aggregate := NewEmptyCloud(format.Dims())
	var timeLags []float64
	for sweep := 0; sweep < opts.NumSweeps; sweep++ {
		cloud, err := format.DecodeFile(filepath.Join(cat.DataPath(), current.Filename), logger)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "sweep %d (%s)", sweep, current.Token)
		}

		pose, err := cat.EgoPose(current.EgoPoseToken)
		if err != nil {
			return nil, nil, err
		}
		cs, err := cat.CalibratedSensor(current.CalibratedSensorToken)
		if err != nil {
			return nil, nil, err
		}
		globalFromCar := spatialmath.NewTransformMatrix(recordVector(pose.Translation), recordQuat(pose.Rotation), false)
		carFromCurrent := spatialmath.NewTransformMatrix(recordVector(cs.Translation), recordQuat(cs.Rotation), false)

		// Each capture's points pass through its own local -> global ->
		// reference chain exactly once, fused into a single matrix.
		cloud.Transform(spatialmath.ComposeTransforms(refFromCar, carFromGlobal, globalFromCar, carFromCurrent))
		cloud.RemoveClose(opts.MinDistance)

		lag := refTime - 1e-6*float64(current.Timestamp)
		for i := 0; i < cloud.Size(); i++ {
			timeLags = append(timeLags, lag)
		}
		if err := aggregate.Merge(cloud); err != nil {
			return nil, nil, err
		}
		logger.Debugw("merged sweep", "sweep", sweep, "token", current.Token, "points", cloud.Size(), "lag", lag)

		if current.Prev == "" {
			break
		}
		current, err = cat.SampleData(current.Prev)
		if err != nil {
			return nil, nil, err
		}
	}
	return aggregate, timeLags, nil
}

func recordVector(t [3]float64) r3.Vector {
	return r3.Vector{X: t[0], Y: t[1], Z: t[2]}
}

func recordQuat(r [4]float64) quat.Number {
	return quat.Number{Real: r[0], Imag: r[1], Jmag: r[2], Kmag: r[3]}
}

// compile-time interface checks for the two capture formats.
var (
	_ Format = LidarFormat{}
	_ Format = (*RadarFormat)(nil)
)
