package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func quarterTurnZ() quat.Number {
	return quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)}
}

func TestNewBoxValidation(t *testing.T) {
	center := r3.Vector{X: 1, Y: 2, Z: 3}
	size := r3.Vector{X: 2, Y: 4, Z: 6}

	b, err := NewBox(center, size, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Center, test.ShouldResemble, center)
	test.That(t, b.Size, test.ShouldResemble, size)
	test.That(t, allNaN(b.Velocity), test.ShouldBeTrue)
	test.That(t, b.Label, test.ShouldBeNil)
	test.That(t, b.Score, test.ShouldBeNil)

	_, err = NewBox(r3.Vector{X: math.NaN()}, size, NewZeroOrientation())
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	_, err = NewBox(center, r3.Vector{X: 2, Y: math.NaN(), Z: 6}, NewZeroOrientation())
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	_, err = NewBox(center, r3.Vector{X: 2, Y: -4, Z: 6}, NewZeroOrientation())
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	// a 4-tuple that is not a unit quaternion is not an orientation
	_, err = NewBox(center, size, quat.Number{Real: 1, Imag: 1, Jmag: 1, Kmag: 1})
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	_, err = NewBox(center, size, quat.Number{})
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)
}

func TestBoxCorners(t *testing.T) {
	b, err := NewBox(r3.Vector{}, r3.Vector{X: 2, Y: 4, Z: 6}, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)

	corners := b.Corners(1.0)
	rows, cols := corners.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 8)

	// width 2, length 4, height 6: x spans [-2, 2], y [-1, 1], z [-3, 3]
	wantX := []float64{2, 2, 2, 2, -2, -2, -2, -2}
	wantY := []float64{1, -1, -1, 1, 1, -1, -1, 1}
	wantZ := []float64{3, 3, -3, -3, 3, 3, -3, -3}
	for i := 0; i < 8; i++ {
		test.That(t, corners.At(0, i), test.ShouldAlmostEqual, wantX[i])
		test.That(t, corners.At(1, i), test.ShouldAlmostEqual, wantY[i])
		test.That(t, corners.At(2, i), test.ShouldAlmostEqual, wantZ[i])
	}

	translated := b.Copy().Translate(r3.Vector{X: 10})
	corners = translated.Corners(1.0)
	test.That(t, corners.At(0, 0), test.ShouldAlmostEqual, 12)
	test.That(t, corners.At(0, 4), test.ShouldAlmostEqual, 8)

	scaled := b.Corners(2.0)
	test.That(t, scaled.At(0, 0), test.ShouldAlmostEqual, 4)
	test.That(t, scaled.At(1, 0), test.ShouldAlmostEqual, 2)
	test.That(t, scaled.At(2, 0), test.ShouldAlmostEqual, 6)
}

func TestBoxBottomCorners(t *testing.T) {
	b, err := NewBox(r3.Vector{X: 1, Y: -1, Z: 2}, r3.Vector{X: 2, Y: 4, Z: 6}, quarterTurnZ())
	test.That(t, err, test.ShouldBeNil)

	corners := b.Corners(1.0)
	bottom := b.BottomCorners()
	rows, cols := bottom.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 4)

	// exactly columns 2, 3, 7, 6 of the corner set, in that order
	for i, col := range []int{2, 3, 7, 6} {
		for r := 0; r < 3; r++ {
			test.That(t, bottom.At(r, i), test.ShouldAlmostEqual, corners.At(r, col))
		}
	}
}

func TestBoxRotateAroundOrigin(t *testing.T) {
	b, err := NewBox(r3.Vector{X: 1}, r3.Vector{X: 1, Y: 1, Z: 1}, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)
	b.Velocity = r3.Vector{X: 1}

	got := b.RotateAroundOrigin(quarterTurnZ())
	test.That(t, got, test.ShouldEqual, b) // returns itself for chaining
	test.That(t, b.Center.X, test.ShouldAlmostEqual, 0)
	test.That(t, b.Center.Y, test.ShouldAlmostEqual, 1)
	test.That(t, b.Velocity.X, test.ShouldAlmostEqual, 0)
	test.That(t, b.Velocity.Y, test.ShouldAlmostEqual, 1)
	test.That(t, QuatAlmostEqual(b.Orientation, quarterTurnZ(), 1e-9), test.ShouldBeTrue)

	// rotating around the origin only preserves a center already there
	atOrigin, err := NewBox(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)
	atOrigin.RotateAroundOrigin(quarterTurnZ())
	test.That(t, atOrigin.Center.X, test.ShouldAlmostEqual, 0)
	test.That(t, atOrigin.Center.Y, test.ShouldAlmostEqual, 0)
	test.That(t, atOrigin.Center.Z, test.ShouldAlmostEqual, 0)
}

func TestBoxRotateAroundBoxCenter(t *testing.T) {
	center := r3.Vector{X: 5, Y: 6, Z: 7}
	b, err := NewBox(center, r3.Vector{X: 1, Y: 1, Z: 1}, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)
	b.Velocity = r3.Vector{Y: 2}

	b.RotateAroundBoxCenter(quarterTurnZ())
	test.That(t, b.Center, test.ShouldResemble, center)
	test.That(t, b.Velocity.X, test.ShouldAlmostEqual, -2)
	test.That(t, b.Velocity.Y, test.ShouldAlmostEqual, 0)
	test.That(t, QuatAlmostEqual(b.Orientation, quarterTurnZ(), 1e-9), test.ShouldBeTrue)
}

func TestBoxAlmostEqual(t *testing.T) {
	a, err := NewBox(r3.Vector{X: 1}, r3.Vector{X: 2, Y: 4, Z: 6}, quarterTurnZ())
	test.That(t, err, test.ShouldBeNil)
	b := a.Copy()
	test.That(t, a.AlmostEqual(b), test.ShouldBeTrue)

	// unknown velocities on both sides compare equal
	test.That(t, allNaN(a.Velocity), test.ShouldBeTrue)
	b.Velocity = r3.Vector{X: 1}
	test.That(t, a.AlmostEqual(b), test.ShouldBeFalse)

	b = a.Copy()
	b.Center.X += 1e-12
	test.That(t, a.AlmostEqual(b), test.ShouldBeTrue)
	b.Center.X += 1
	test.That(t, a.AlmostEqual(b), test.ShouldBeFalse)

	b = a.Copy()
	label := 7
	b.Label = &label
	test.That(t, a.AlmostEqual(b), test.ShouldBeFalse)
	a2 := a.Copy()
	label2 := 7
	a2.Label = &label2
	test.That(t, a2.AlmostEqual(b), test.ShouldBeTrue)
}

func TestBoxString(t *testing.T) {
	b, err := NewBox(r3.Vector{X: 1}, r3.Vector{X: 2, Y: 4, Z: 6}, quarterTurnZ())
	test.That(t, err, test.ShouldBeNil)
	b.Name = "car"

	s := b.String()
	test.That(t, s, test.ShouldContainSubstring, "label: none")
	test.That(t, s, test.ShouldContainSubstring, "wlh: [2.00, 4.00, 6.00]")
	// the rotation angle is reported in both units
	test.That(t, s, test.ShouldContainSubstring, "ang(degrees): 90.00")
	test.That(t, s, test.ShouldContainSubstring, "ang(rad): 1.57")
	test.That(t, s, test.ShouldContainSubstring, "name: car")

	label := 7
	score := 0.25
	b.Label = &label
	b.Score = &score
	s = b.String()
	test.That(t, s, test.ShouldContainSubstring, "label: 7")
	test.That(t, s, test.ShouldContainSubstring, "score: 0.25")
}

func TestBoxCopyIsolation(t *testing.T) {
	label := 3
	score := 0.5
	b, err := NewBox(r3.Vector{X: 1}, r3.Vector{X: 2, Y: 4, Z: 6}, NewZeroOrientation())
	test.That(t, err, test.ShouldBeNil)
	b.Label = &label
	b.Score = &score
	b.Name = "car"

	clone := b.Copy()
	test.That(t, b.AlmostEqual(clone), test.ShouldBeTrue)
	test.That(t, clone.Name, test.ShouldEqual, "car")

	*clone.Label = 9
	clone.Center.X = 100
	test.That(t, *b.Label, test.ShouldEqual, 3)
	test.That(t, b.Center.X, test.ShouldEqual, 1)
}
