// Package spatialmath defines the rigid transforms used to place scene nodes in a reference frame.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

const floatEpsilon = 1e-6

// Pose is a position plus an orientation. The zero value is the identity transform.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose at the given point with the given orientation. The orientation is
// normalized; a zero quaternion is treated as no rotation.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	return Pose{Point: point, Orientation: normalize(orientation)}
}

// NewPoseFromPoint returns a pose with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, quat.Number{Real: 1})
}

// NewPoseFromAxisAngle returns a pose at point rotated by theta radians about axis.
func NewPoseFromAxisAngle(point, axis r3.Vector, theta float64) Pose {
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	return NewPose(point, quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s})
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < floatEpsilon {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// dualQuaternion converts the pose into a unit dual quaternion: the real part is the rotation and
// the dual part is half the translation multiplied by the rotation.
func (p Pose) dualQuaternion() dualquat.Number {
	rot := normalize(p.Orientation)
	trans := quat.Number{Imag: p.Point.X, Jmag: p.Point.Y, Kmag: p.Point.Z}
	return dualquat.Number{
		Real: rot,
		Dual: quat.Scale(0.5, quat.Mul(trans, rot)),
	}
}

func poseFromDualQuaternion(dq dualquat.Number) Pose {
	trans := quat.Scale(2, quat.Mul(dq.Dual, quat.Conj(dq.Real)))
	return Pose{
		Point:       r3.Vector{X: trans.Imag, Y: trans.Jmag, Z: trans.Kmag},
		Orientation: normalize(dq.Real),
	}
}

// Compose returns the pose obtained by applying b in the frame described by a.
func Compose(a, b Pose) Pose {
	return poseFromDualQuaternion(dualquat.Mul(a.dualQuaternion(), b.dualQuaternion()))
}

// Invert returns the inverse transform of p.
func (p Pose) Invert() Pose {
	conj := quat.Conj(normalize(p.Orientation))
	return Pose{
		Point:       RotateVector(conj, p.Point).Mul(-1),
		Orientation: conj,
	}
}

// Transform applies the pose to a point.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	return RotateVector(p.Orientation, v).Add(p.Point)
}

// RotateVector rotates v by the (normalized) quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	q = normalize(q)
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// PoseAlmostEqual returns whether the two poses describe the same transform within a small epsilon.
// q and -q describe the same rotation.
func PoseAlmostEqual(a, b Pose) bool {
	if !R3VectorAlmostEqual(a.Point, b.Point, floatEpsilon) {
		return false
	}
	qa, qb := normalize(a.Orientation), normalize(b.Orientation)
	dot := qa.Real*qb.Real + qa.Imag*qb.Imag + qa.Jmag*qb.Jmag + qa.Kmag*qb.Kmag
	return math.Abs(math.Abs(dot)-1) < floatEpsilon
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
