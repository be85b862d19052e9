package dataset

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MemoryCatalog is a Catalog backed by in-memory maps. It is the only
// concrete catalog in the devkit and mainly serves tests and small tools that
// assemble records by hand.
type MemoryCatalog struct {
	dataPath          string
	sampleData        map[string]SampleData
	egoPoses          map[string]EgoPose
	calibratedSensors map[string]CalibratedSensor
}

// NewMemoryCatalog returns an empty catalog whose sensor filenames resolve
// relative to dataPath.
func NewMemoryCatalog(dataPath string) *MemoryCatalog {
	return &MemoryCatalog{
		dataPath:          dataPath,
		sampleData:        map[string]SampleData{},
		egoPoses:          map[string]EgoPose{},
		calibratedSensors: map[string]CalibratedSensor{},
	}
}

// AddSampleData registers a sensor frame record under its token.
func (c *MemoryCatalog) AddSampleData(sd SampleData) {
	c.sampleData[sd.Token] = sd
}

// AddEgoPose registers an ego pose record under its token.
func (c *MemoryCatalog) AddEgoPose(ep EgoPose) {
	c.egoPoses[ep.Token] = ep
}

// AddCalibratedSensor registers a calibration record under its token.
func (c *MemoryCatalog) AddCalibratedSensor(cs CalibratedSensor) {
	c.calibratedSensors[cs.Token] = cs
}

// SampleData implements Catalog.
func (c *MemoryCatalog) SampleData(token string) (SampleData, error) {
	sd, ok := c.sampleData[token]
	if !ok {
		return SampleData{}, errors.Wrapf(ErrRecordNotFound, "sample_data %q", token)
	}
	return sd, nil
}

// EgoPose implements Catalog.
func (c *MemoryCatalog) EgoPose(token string) (EgoPose, error) {
	ep, ok := c.egoPoses[token]
	if !ok {
		return EgoPose{}, errors.Wrapf(ErrRecordNotFound, "ego_pose %q", token)
	}
	return ep, nil
}

// CalibratedSensor implements Catalog.
func (c *MemoryCatalog) CalibratedSensor(token string) (CalibratedSensor, error) {
	cs, ok := c.calibratedSensors[token]
	if !ok {
		return CalibratedSensor{}, errors.Wrapf(ErrRecordNotFound, "calibrated_sensor %q", token)
	}
	return cs, nil
}

// DataPath implements Catalog.
func (c *MemoryCatalog) DataPath() string {
	return c.dataPath
}

// Validate checks the referential integrity of every registered record and
// returns all dangling token references at once.
func (c *MemoryCatalog) Validate() error {
	var err error
	for token, sd := range c.sampleData {
		if _, ok := c.egoPoses[sd.EgoPoseToken]; !ok {
			err = multierr.Append(err, errors.Errorf("sample_data %q references missing ego_pose %q", token, sd.EgoPoseToken))
		}
		if _, ok := c.calibratedSensors[sd.CalibratedSensorToken]; !ok {
			err = multierr.Append(err,
				errors.Errorf("sample_data %q references missing calibrated_sensor %q", token, sd.CalibratedSensorToken))
		}
		if sd.Prev != "" {
			if _, ok := c.sampleData[sd.Prev]; !ok {
				err = multierr.Append(err, errors.Errorf("sample_data %q references missing predecessor %q", token, sd.Prev))
			}
		}
	}
	return err
}
