package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/aevlab/drivekit/utils"
)

// unitQuaternionEpsilon is the allowed deviation of a quaternion norm from 1
// before we refuse to treat it as an orientation.
const unitQuaternionEpsilon = 1e-6

// NewQuaternion returns a quaternion with the given real and imaginary parts,
// in w, x, y, z order.
func NewQuaternion(w, x, y, z float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// NewZeroOrientation returns the identity quaternion.
func NewZeroOrientation() quat.Number {
	return quat.Number{Real: 1}
}

// Normalize returns the given quaternion scaled to unit length.
func Normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if utils.Float64AlmostEqual(length, 1, 1e-10) {
		return q
	}
	return quat.Scale(1/length, q)
}

// IsUnitQuaternion reports whether q has unit norm within tolerance. The zero
// quaternion and any quaternion with non-finite components are not unit.
func IsUnitQuaternion(q quat.Number) bool {
	length := quat.Abs(q)
	if math.IsNaN(length) || math.IsInf(length, 0) {
		return false
	}
	return utils.Float64AlmostEqual(length, 1, unitQuaternionEpsilon)
}

// QuatRotateVector rotates the given vector by the given quaternion.
func QuatRotateVector(q quat.Number, v r3.Vector) r3.Vector {
	return QuatToRotationMatrix(q).Mul(v)
}

// QuatAlmostEqual reports whether the elements of two quaternions are within
// the given epsilon of each other.
func QuatAlmostEqual(a, b quat.Number, epsilon float64) bool {
	return utils.Float64AlmostEqual(a.Real, b.Real, epsilon) &&
		utils.Float64AlmostEqual(a.Imag, b.Imag, epsilon) &&
		utils.Float64AlmostEqual(a.Jmag, b.Jmag, epsilon) &&
		utils.Float64AlmostEqual(a.Kmag, b.Kmag, epsilon)
}

// QuatAxis returns the rotation axis of the quaternion. The identity rotation
// has no well defined axis; the z axis is returned by convention.
func QuatAxis(q quat.Number) r3.Vector {
	q = Normalize(q)
	sinHalf := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if sinHalf < 1e-12 {
		return r3.Vector{Z: 1}
	}
	return r3.Vector{X: q.Imag / sinHalf, Y: q.Jmag / sinHalf, Z: q.Kmag / sinHalf}
}

// QuatAngle returns the rotation angle of the quaternion in radians.
func QuatAngle(q quat.Number) float64 {
	q = Normalize(q)
	w := q.Real
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	return 2 * math.Acos(w)
}
