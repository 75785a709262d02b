package referenceframe

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/spatialmath"
)

func TestSubscribeReceivesKnownTransform(t *testing.T) {
	ft := NewFrameTracker("", logging.NewTestLogger(t))
	test.That(t, ft.FixedFrame(), test.ShouldEqual, World)
	test.That(t, ft.SetTransform("/base", spatialmath.NewPoseFromPoint(r3.Vector{X: 1})), test.ShouldBeNil)

	var got []spatialmath.Pose
	id := ft.Subscribe("base", func(p spatialmath.Pose) { got = append(got, p) })
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, got[0].Point, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, ft.NumSubscribers("/base"), test.ShouldEqual, 1)

	test.That(t, ft.SetTransform("base", spatialmath.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 2)

	ft.Unsubscribe("base", id)
	ft.Unsubscribe("base", id)
	test.That(t, ft.NumSubscribers("base"), test.ShouldEqual, 0)

	test.That(t, ft.SetTransform("base", spatialmath.NewPoseFromPoint(r3.Vector{X: 3})), test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 2)
}

func TestUnknownFrameWaitsForParent(t *testing.T) {
	ft := NewFrameTracker("map", logging.NewTestLogger(t))

	var got []spatialmath.Pose
	ft.Subscribe("laser", func(p spatialmath.Pose) { got = append(got, p) })
	test.That(t, got, test.ShouldBeEmpty)

	test.That(t, ft.SetFrame("laser", "base", spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})), test.ShouldBeNil)
	test.That(t, got, test.ShouldBeEmpty)
	_, ok := ft.Transform("laser")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, ft.SetFrame("base", "map", spatialmath.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, spatialmath.R3VectorAlmostEqual(got[0].Point, r3.Vector{X: 2, Z: 1}, 1e-9), test.ShouldBeTrue)
}

func TestFrameCycle(t *testing.T) {
	ft := NewFrameTracker("world", logging.NewTestLogger(t))
	test.That(t, ft.SetFrame("a", "world", spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, ft.SetFrame("b", "a", spatialmath.NewZeroPose()), test.ShouldBeNil)

	err := ft.SetFrame("a", "b", spatialmath.NewZeroPose())
	test.That(t, errors.Is(err, ErrFrameCycle), test.ShouldBeTrue)
	test.That(t, ft.SetFrame("world", "a", spatialmath.NewZeroPose()), test.ShouldNotBeNil)

	ft.RemoveFrame("b")
	_, ok := ft.Transform("b")
	test.That(t, ok, test.ShouldBeFalse)
}
