// Package pointcloud holds the point cloud data model for autonomous driving
// sensor sweeps, binary decoders for the lidar and radar capture formats, and
// the multi-sweep aggregation that merges a chain of captures into a single
// reference frame.
//
// A cloud is a dense D x N matrix: D fixed channel rows and one column per
// point. Rows 0, 1, 2 are always x, y, z in a Cartesian frame and are the
// only rows touched by the geometric operations; the remaining rows are
// format specific (intensity, velocities, validity codes) and must be
// reinterpreted manually if the reference frame changes.
package pointcloud

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/aevlab/drivekit/spatialmath"
)

// Cloud is a matrix-backed point cloud. The matrix is exclusively owned by
// the cloud; operations mutate it in place. A Cloud is not safe for
// concurrent mutation without external synchronization.
type Cloud struct {
	dims   int
	points *mat.Dense // nil when the cloud has no points
}

// NewCloud wraps the given D x N matrix in a cloud of the given
// dimensionality. A nil matrix makes an empty cloud. The row count must
// match dims.
func NewCloud(dims int, points *mat.Dense) (*Cloud, error) {
	if points == nil {
		return &Cloud{dims: dims}, nil
	}
	rows, _ := points.Dims()
	if rows != dims {
		return nil, newShapeMismatchError(dims, rows)
	}
	return &Cloud{dims: dims, points: points}, nil
}

// NewEmptyCloud returns a cloud of the given dimensionality with no points.
func NewEmptyCloud(dims int) *Cloud {
	return &Cloud{dims: dims}
}

// Dims returns the number of channel rows.
func (c *Cloud) Dims() int {
	return c.dims
}

// Size returns the number of points.
func (c *Cloud) Size() int {
	if c.points == nil {
		return 0
	}
	_, cols := c.points.Dims()
	return cols
}

// Matrix returns the underlying point matrix, nil when the cloud is empty.
// The matrix is still owned by the cloud.
func (c *Cloud) Matrix() *mat.Dense {
	return c.points
}

// Clone returns a deep copy of the cloud.
func (c *Cloud) Clone() *Cloud {
	if c.points == nil {
		return &Cloud{dims: c.dims}
	}
	clone := mat.NewDense(c.dims, c.Size(), nil)
	clone.Copy(c.points)
	return &Cloud{dims: c.dims, points: clone}
}

// Translate adds the given vector to the x, y, z rows of every point.
func (c *Cloud) Translate(v r3.Vector) {
	offsets := [3]float64{v.X, v.Y, v.Z}
	for col := 0; col < c.Size(); col++ {
		for row := 0; row < 3; row++ {
			c.points.Set(row, col, c.points.At(row, col)+offsets[row])
		}
	}
}

// Rotate replaces the x, y, z rows with their product with the given rotation
// matrix. All other rows are untouched.
func (c *Cloud) Rotate(rm *spatialmath.RotationMatrix) {
	for col := 0; col < c.Size(); col++ {
		p := r3.Vector{X: c.points.At(0, col), Y: c.points.At(1, col), Z: c.points.At(2, col)}
		p = rm.Mul(p)
		c.points.Set(0, col, p.X)
		c.points.Set(1, col, p.Y)
		c.points.Set(2, col, p.Z)
	}
}

// Transform applies a 4x4 homogeneous transform to the x, y, z rows, treating
// each point as having an implicit unit fourth coordinate. The homogeneous
// coordinate is dropped after application.
func (c *Cloud) Transform(tf *mat.Dense) {
	n := c.Size()
	if n == 0 {
		return
	}
	hom := mat.NewDense(4, n, nil)
	for col := 0; col < n; col++ {
		hom.Set(0, col, c.points.At(0, col))
		hom.Set(1, col, c.points.At(1, col))
		hom.Set(2, col, c.points.At(2, col))
		hom.Set(3, col, 1)
	}
	var transformed mat.Dense
	transformed.Mul(tf, hom)
	for col := 0; col < n; col++ {
		c.points.Set(0, col, transformed.At(0, col))
		c.points.Set(1, col, transformed.At(1, col))
		c.points.Set(2, col, transformed.At(2, col))
	}
}

// RemoveClose drops every point whose |x| and |y| are both strictly below
// radius. The footprint is an axis-aligned square around the origin, not a
// circle; both axes must be within bound for a point to be removed.
// Downstream numeric results depend on this exact footprint.
func (c *Cloud) RemoveClose(radius float64) {
	n := c.Size()
	if n == 0 {
		return
	}
	keep := make([]int, 0, n)
	for col := 0; col < n; col++ {
		xClose := math.Abs(c.points.At(0, col)) < radius
		yClose := math.Abs(c.points.At(1, col)) < radius
		if !(xClose && yClose) {
			keep = append(keep, col)
		}
	}
	c.selectColumns(keep)
}

// Subsample replaces the cloud with a column sample of size floor(N * ratio),
// drawn uniformly with replacement, so points may be duplicated.
func (c *Cloud) Subsample(ratio float64) {
	n := c.Size()
	size := int(float64(n) * ratio)
	if n == 0 || size <= 0 {
		c.points = nil
		return
	}
	cols := make([]int, size)
	for i := range cols {
		cols[i] = rand.Intn(n)
	}
	c.selectColumns(cols)
}

// Merge appends the points of the other cloud to this one. The two clouds
// must have the same dimensionality.
func (c *Cloud) Merge(other *Cloud) error {
	if other.dims != c.dims {
		return newShapeMismatchError(c.dims, other.dims)
	}
	if other.Size() == 0 {
		return nil
	}
	if c.Size() == 0 {
		c.points = mat.DenseCopyOf(other.points)
		return nil
	}
	merged := mat.NewDense(c.dims, c.Size()+other.Size(), nil)
	merged.Slice(0, c.dims, 0, c.Size()).(*mat.Dense).Copy(c.points)
	merged.Slice(0, c.dims, c.Size(), c.Size()+other.Size()).(*mat.Dense).Copy(other.points)
	c.points = merged
	return nil
}

// selectColumns replaces the matrix with the given columns, in order.
// Duplicate indices are allowed.
func (c *Cloud) selectColumns(cols []int) {
	if len(cols) == 0 {
		c.points = nil
		return
	}
	selected := mat.NewDense(c.dims, len(cols), nil)
	for i, col := range cols {
		for row := 0; row < c.dims; row++ {
			selected.Set(row, i, c.points.At(row, col))
		}
	}
	c.points = selected
}
