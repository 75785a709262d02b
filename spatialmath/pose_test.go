package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestZeroPoseIsIdentity(t *testing.T) {
	var zero Pose
	test.That(t, PoseAlmostEqual(zero, NewZeroPose()), test.ShouldBeTrue)

	p := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, PoseAlmostEqual(Compose(zero, p), p), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(p, zero), p), test.ShouldBeTrue)
}

func TestCompose(t *testing.T) {
	turn := NewPoseFromAxisAngle(r3.Vector{X: 1}, r3.Vector{Z: 1}, math.Pi/2)
	offset := NewPoseFromPoint(r3.Vector{X: 1})

	composed := Compose(turn, offset)
	test.That(t, R3VectorAlmostEqual(composed.Point, r3.Vector{X: 1, Y: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(NewPose(composed.Point, composed.Orientation), composed), test.ShouldBeTrue)

	test.That(t, R3VectorAlmostEqual(turn.Transform(r3.Vector{X: 1}), r3.Vector{X: 1, Y: 1}, 1e-9), test.ShouldBeTrue)
}

func TestInvert(t *testing.T) {
	p := NewPoseFromAxisAngle(r3.Vector{X: 3, Y: -1, Z: 2}, r3.Vector{X: 1, Y: 1}, 0.7)
	test.That(t, PoseAlmostEqual(Compose(p, p.Invert()), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(p.Invert(), p), NewZeroPose()), test.ShouldBeTrue)
}

func TestNegatedQuaternionIsSameRotation(t *testing.T) {
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	a := NewPose(r3.Vector{}, q)
	b := NewPose(r3.Vector{}, quat.Scale(-1, q))
	test.That(t, PoseAlmostEqual(a, b), test.ShouldBeTrue)
}
