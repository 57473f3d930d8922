// Package geom provides the small amount of 3D math the generator needs:
// points, agent poses and the homogeneous transforms written to the
// trajectory file.
//
// Coordinates follow the simulator convention: +Y is up and the agent looks
// down -Z when its rotation is the identity.
package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// NaN3 returns the vector the pathfinder uses to signal "no point".
func NaN3() Vec3 {
	return Vec3{math.NaN(), math.NaN(), math.NaN()}
}

// HasNaN reports whether any component is NaN.
func (v Vec3) HasNaN() bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Len returns the Euclidean length.
func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// HorizontalDist ignores the vertical axis.
func (v Vec3) HorizontalDist(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Slice returns the components as [x, y, z].
func (v Vec3) Slice() []float64 { return []float64{v.X, v.Y, v.Z} }

// Front is the local forward axis.
var Front = Vec3{0, 0, -1}

// Pose is a position plus orientation.
type Pose struct {
	Position Vec3
	Rotation quat.Number
}

// Identity is the unit quaternion.
var Identity = quat.Number{Real: 1}

// YawRotation returns the rotation of rad radians about +Y.
func YawRotation(rad float64) quat.Number {
	return quat.Number{Real: math.Cos(rad / 2), Jmag: math.Sin(rad / 2)}
}

// Normalize rescales q to unit length. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies q to v.
func Rotate(q quat.Number, v Vec3) Vec3 {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return Vec3{r.Imag, r.Jmag, r.Kmag}
}

// Yaw returns the heading of q about +Y, measured so that YawRotation(Yaw(q))
// points the agent the same way as q.
func Yaw(q quat.Number) float64 {
	f := Rotate(q, Front)
	return math.Atan2(-f.X, -f.Z)
}

// Forward returns the world-space forward direction of the pose.
func (p Pose) Forward() Vec3 {
	return Rotate(p.Rotation, Front)
}

// Mat4 is a 4x4 homogeneous transform stored row-major.
type Mat4 [16]float64

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float64 { return m[r*4+c] }

// Transform returns the pose as a homogeneous matrix: rotation in the upper
// 3x3 block, translation in the last column.
func (p Pose) Transform() Mat4 {
	q := Normalize(p.Rotation)
	ex := Rotate(q, Vec3{1, 0, 0})
	ey := Rotate(q, Vec3{0, 1, 0})
	ez := Rotate(q, Vec3{0, 0, 1})

	d := mat.NewDense(4, 4, []float64{
		ex.X, ey.X, ez.X, p.Position.X,
		ex.Y, ey.Y, ez.Y, p.Position.Y,
		ex.Z, ey.Z, ez.Z, p.Position.Z,
		0, 0, 0, 1,
	})

	var m Mat4
	copy(m[:], d.RawMatrix().Data)
	return m
}

// Intrinsics returns the 3x3 pinhole camera matrix for a sensor of the given
// resolution and horizontal field of view in degrees. Pixels are square, so
// the same focal length applies to both axes.
func Intrinsics(width, height int, hfovDeg float64) *mat.Dense {
	hfov := hfovDeg * math.Pi / 180
	f := float64(width) / 2 / math.Tan(hfov/2)
	return mat.NewDense(3, 3, []float64{
		f, 0, float64(width-1) / 2,
		0, f, float64(height-1) / 2,
		0, 0, 1,
	})
}
