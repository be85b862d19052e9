package dataset

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestMemoryCatalog(t *testing.T) {
	cat := NewMemoryCatalog("/data/sweeps")
	test.That(t, cat.DataPath(), test.ShouldEqual, "/data/sweeps")

	sd := SampleData{
		Token:                 "sd1",
		Filename:              "lidar/sweep0001.bin",
		Timestamp:             1_535_385_095_404_451,
		EgoPoseToken:          "ep1",
		CalibratedSensorToken: "cs1",
	}
	cat.AddSampleData(sd)
	cat.AddEgoPose(EgoPose{Token: "ep1", Translation: [3]float64{1, 2, 3}, Rotation: [4]float64{1, 0, 0, 0}})
	cat.AddCalibratedSensor(CalibratedSensor{Token: "cs1", SensorToken: "lidar_top", Rotation: [4]float64{1, 0, 0, 0}})

	got, err := cat.SampleData("sd1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, sd)

	pose, err := cat.EgoPose("ep1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Translation, test.ShouldResemble, [3]float64{1, 2, 3})

	cs, err := cat.CalibratedSensor("cs1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cs.SensorToken, test.ShouldEqual, "lidar_top")

	// re-registering a token replaces the record
	sd.Filename = "lidar/sweep0002.bin"
	cat.AddSampleData(sd)
	got, err = cat.SampleData("sd1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Filename, test.ShouldEqual, "lidar/sweep0002.bin")
}

func TestMemoryCatalogValidate(t *testing.T) {
	cat := NewMemoryCatalog("")
	cat.AddEgoPose(EgoPose{Token: "ep1"})
	cat.AddCalibratedSensor(CalibratedSensor{Token: "cs1"})
	cat.AddSampleData(SampleData{Token: "sd1", EgoPoseToken: "ep1", CalibratedSensorToken: "cs1"})
	test.That(t, cat.Validate(), test.ShouldBeNil)

	cat.AddSampleData(SampleData{Token: "sd2", EgoPoseToken: "gone", CalibratedSensorToken: "cs1", Prev: "also-gone"})
	err := cat.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "gone")
	test.That(t, err.Error(), test.ShouldContainSubstring, "also-gone")
}

func TestMemoryCatalogNotFound(t *testing.T) {
	cat := NewMemoryCatalog("")

	_, err := cat.SampleData("nope")
	test.That(t, errors.Is(err, ErrRecordNotFound), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nope")

	_, err = cat.EgoPose("nope")
	test.That(t, errors.Is(err, ErrRecordNotFound), test.ShouldBeTrue)

	_, err = cat.CalibratedSensor("nope")
	test.That(t, errors.Is(err, ErrRecordNotFound), test.ShouldBeTrue)
}
