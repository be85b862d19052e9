package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/aevlab/drivekit/utils"
)

// Corner sign pattern in the box frame, x forward, y left, z up. The first
// four corners are on the forward face, the last four on the rear face.
var (
	boxCornersX = [8]float64{1, 1, 1, 1, -1, -1, -1, -1}
	boxCornersY = [8]float64{1, -1, -1, 1, 1, -1, -1, 1}
	boxCornersZ = [8]float64{1, 1, -1, -1, 1, 1, -1, -1}
)

// bottomCornerIndices selects the four bottom corners from the 8-corner set,
// front-bottom-left, front-bottom-right, rear-bottom-right, rear-bottom-left.
// Downstream geometry code depends on this exact ordering.
var bottomCornerIndices = [4]int{2, 3, 7, 6}

// Box is a 3D oriented bounding box for a detected or annotated object. The
// box owns all of its fields by value; no state is shared between instances.
//
// Label and Score are nil when the source annotation does not carry them.
// Velocity is the NaN triple when unknown.
type Box struct {
	Center      r3.Vector
	Size        r3.Vector // width, length, height
	Orientation quat.Number
	Label       *int
	Score       *float64
	Velocity    r3.Vector
	Name        string
	Token       string
}

// NewBox creates a box from its center, size (width, length, height) and
// orientation. Center and size must be finite and the orientation must be a
// unit quaternion. Velocity starts out unknown.
func NewBox(center, size r3.Vector, orientation quat.Number) (*Box, error) {
	if anyNaN(center) {
		return nil, newBadBoxCenterError(center)
	}
	if anyNaN(size) || size.X < 0 || size.Y < 0 || size.Z < 0 {
		return nil, newBadBoxSizeError(size)
	}
	if !IsUnitQuaternion(orientation) {
		return nil, newBadOrientationError()
	}
	return &Box{
		Center:      center,
		Size:        size,
		Orientation: orientation,
		Velocity:    r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()},
	}, nil
}

// RotationMatrix returns the box's rotation matrix.
func (b *Box) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(b.Orientation)
}

// Translate moves the box center by the given vector and returns the box to
// allow chaining.
func (b *Box) Translate(v r3.Vector) *Box {
	b.Center = b.Center.Add(v)
	return b
}

// RotateAroundOrigin rotates the box around (0, 0, 0), as when the box's
// reference frame itself is rotated. Center, orientation and velocity all
// rotate.
func (b *Box) RotateAroundOrigin(q quat.Number) *Box {
	rm := QuatToRotationMatrix(q)
	b.Center = rm.Mul(b.Center)
	b.Orientation = quat.Mul(q, b.Orientation)
	b.Velocity = rm.Mul(b.Velocity)
	return b
}

// RotateAroundBoxCenter re-orients the box in place. Orientation and velocity
// rotate while the center stays fixed.
func (b *Box) RotateAroundBoxCenter(q quat.Number) *Box {
	b.Orientation = quat.Mul(q, b.Orientation)
	b.Velocity = QuatToRotationMatrix(q).Mul(b.Velocity)
	return b
}

// Corners returns the eight box corners as the columns of a 3x8 matrix. The
// first four columns are the corners of the forward face, the last four the
// rear face. sizeFactor scales width, length and height before the corners
// are generated.
func (b *Box) Corners(sizeFactor float64) *mat.Dense {
	width := b.Size.X * sizeFactor
	length := b.Size.Y * sizeFactor
	height := b.Size.Z * sizeFactor

	rm := b.RotationMatrix()
	corners := mat.NewDense(3, 8, nil)
	for i := 0; i < 8; i++ {
		local := r3.Vector{
			X: length / 2 * boxCornersX[i],
			Y: width / 2 * boxCornersY[i],
			Z: height / 2 * boxCornersZ[i],
		}
		world := rm.Mul(local).Add(b.Center)
		corners.Set(0, i, world.X)
		corners.Set(1, i, world.Y)
		corners.Set(2, i, world.Z)
	}
	return corners
}

// BottomCorners returns the four bottom corners as the columns of a 3x4
// matrix, in front-left, front-right, rear-right, rear-left order.
func (b *Box) BottomCorners() *mat.Dense {
	corners := b.Corners(1.0)
	bottom := mat.NewDense(3, 4, nil)
	for i, col := range bottomCornerIndices {
		for r := 0; r < 3; r++ {
			bottom.Set(r, i, corners.At(r, col))
		}
	}
	return bottom
}

// AlmostEqual compares two boxes with floating point tolerance. Optional
// label and score fields compare equal when unset on both sides, and an
// unknown velocity (all NaN) equals another unknown velocity.
func (b *Box) AlmostEqual(other *Box) bool {
	const epsilon = 1e-8
	if !vecAlmostEqual(b.Center, other.Center, epsilon) {
		return false
	}
	if !vecAlmostEqual(b.Size, other.Size, epsilon) {
		return false
	}
	if !QuatAlmostEqual(b.Orientation, other.Orientation, epsilon) {
		return false
	}
	if !optIntEqual(b.Label, other.Label) {
		return false
	}
	if !optFloatEqual(b.Score, other.Score) {
		return false
	}
	if vecAlmostEqual(b.Velocity, other.Velocity, epsilon) {
		return true
	}
	return allNaN(b.Velocity) && allNaN(other.Velocity)
}

// Copy returns a deep copy of the box. All fields are plain values, so a
// structural copy fully isolates the two instances.
func (b *Box) Copy() *Box {
	clone := *b
	if b.Label != nil {
		label := *b.Label
		clone.Label = &label
	}
	if b.Score != nil {
		score := *b.Score
		clone.Score = &score
	}
	return &clone
}

// String returns a human readable description of the box.
func (b *Box) String() string {
	label := "none"
	if b.Label != nil {
		label = fmt.Sprintf("%d", *b.Label)
	}
	score := "none"
	if b.Score != nil {
		score = fmt.Sprintf("%.2f", *b.Score)
	}
	axis := QuatAxis(b.Orientation)
	angle := QuatAngle(b.Orientation)
	return fmt.Sprintf(
		"label: %s, score: %s, xyz: [%.2f, %.2f, %.2f], wlh: [%.2f, %.2f, %.2f], "+
			"rot axis: [%.2f, %.2f, %.2f], ang(degrees): %.2f, ang(rad): %.2f, "+
			"vel: [%.2f, %.2f, %.2f], name: %s, token: %s",
		label, score,
		b.Center.X, b.Center.Y, b.Center.Z,
		b.Size.X, b.Size.Y, b.Size.Z,
		axis.X, axis.Y, axis.Z, utils.RadToDeg(angle), angle,
		b.Velocity.X, b.Velocity.Y, b.Velocity.Z,
		b.Name, b.Token)
}

func anyNaN(v r3.Vector) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

func allNaN(v r3.Vector) bool {
	return math.IsNaN(v.X) && math.IsNaN(v.Y) && math.IsNaN(v.Z)
}

func vecAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return utils.Float64AlmostEqual(a.X, b.X, epsilon) &&
		utils.Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		utils.Float64AlmostEqual(a.Z, b.Z, epsilon)
}

func optIntEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optFloatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
