package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// NewTransformMatrix returns the 4x4 homogeneous transform combining the given
// translation and rotation. With inverse set, the returned matrix is the exact
// inverse transform: R^T for the rotation block and -R^T*t for the translation
// column.
func NewTransformMatrix(translation r3.Vector, rotation quat.Number, inverse bool) *mat.Dense {
	rm := QuatToRotationMatrix(rotation)
	t := translation
	if inverse {
		rm = rm.Transpose()
		t = rm.Mul(translation.Mul(-1))
	}
	tf := mat.NewDense(4, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			tf.Set(r, c, rm.At(r, c))
		}
	}
	tf.Set(0, 3, t.X)
	tf.Set(1, 3, t.Y)
	tf.Set(2, 3, t.Z)
	tf.Set(3, 3, 1)
	return tf
}

// ComposeTransforms multiplies the given homogeneous transforms left to right,
// so the rightmost transform is applied to points first.
func ComposeTransforms(tfs ...*mat.Dense) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		out.Set(i, i, 1)
	}
	for _, tf := range tfs {
		var product mat.Dense
		product.Mul(out, tf)
		out = &product
	}
	return out
}

// ApplyTransformPoint applies a homogeneous transform to a single point.
func ApplyTransformPoint(tf *mat.Dense, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: tf.At(0, 0)*p.X + tf.At(0, 1)*p.Y + tf.At(0, 2)*p.Z + tf.At(0, 3),
		Y: tf.At(1, 0)*p.X + tf.At(1, 1)*p.Y + tf.At(1, 2)*p.Z + tf.At(1, 3),
		Z: tf.At(2, 0)*p.X + tf.At(2, 1)*p.Y + tf.At(2, 2)*p.Z + tf.At(2, 3),
	}
}
