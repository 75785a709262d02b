package scene

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/referenceframe"
	"go.viam.com/rosscene/spatialmath"
)

// recordingNode appends to a shared log when it is disposed.
type recordingNode struct {
	*NodeBase
	log *[]string
}

func (n *recordingNode) Dispose() {
	*n.log = append(*n.log, "dispose")
	n.NodeBase.Dispose()
}

// recordingTracker logs unsubscriptions into the same log.
type recordingTracker struct {
	*referenceframe.FrameTracker
	log *[]string
}

func (rt *recordingTracker) Unsubscribe(frameID string, id referenceframe.TrackingID) {
	*rt.log = append(*rt.log, "unsubscribe:"+frameID)
	rt.FrameTracker.Unsubscribe(frameID, id)
}

// recordingRoot logs detachments.
type recordingRoot struct {
	*Group
	log *[]string
}

func (rr *recordingRoot) Remove(child Node) bool {
	*rr.log = append(*rr.log, "detach")
	return rr.Group.Remove(child)
}

func TestGroupChildren(t *testing.T) {
	root := NewGroup("root")
	a, b := NewGroup("a"), NewGroup("b")
	root.Add(a)
	root.Add(a)
	root.Add(nil)
	a.Add(b)

	test.That(t, root.Children(), test.ShouldHaveLength, 1)
	test.That(t, Count(root), test.ShouldEqual, 2)

	var names []string
	Walk(root, func(n Node) bool {
		names = append(names, n.Name())
		return n != Node(a)
	})
	test.That(t, names, test.ShouldResemble, []string{"root", "a"})

	test.That(t, root.Remove(b), test.ShouldBeFalse)
	test.That(t, root.Remove(a), test.ShouldBeTrue)
	test.That(t, Count(root), test.ShouldEqual, 0)
}

func TestAttachmentFollowsFrame(t *testing.T) {
	tracker := referenceframe.NewFrameTracker("world", logging.NewTestLogger(t))
	obj := NewGroup("grid")
	offset := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})

	att, err := NewAttachment(AttachmentConfig{FrameID: "base", Tracker: tracker, Pose: offset, Object: obj})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, att.Visible(), test.ShouldBeFalse)
	test.That(t, att.Tracking(), test.ShouldBeTrue)
	test.That(t, att.Children(), test.ShouldResemble, []Node{obj})

	test.That(t, tracker.SetTransform("base", spatialmath.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeNil)
	test.That(t, att.Visible(), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(att.Pose().Point, r3.Vector{X: 2, Z: 1}, 1e-9), test.ShouldBeTrue)

	att.Rebind("odom")
	test.That(t, att.FrameID(), test.ShouldEqual, "odom")
	test.That(t, att.Visible(), test.ShouldBeFalse)
	test.That(t, tracker.NumSubscribers("base"), test.ShouldEqual, 0)
	test.That(t, tracker.NumSubscribers("odom"), test.ShouldEqual, 1)

	att.UnsubscribeTracking()
	att.UnsubscribeTracking()
	test.That(t, att.Tracking(), test.ShouldBeFalse)
	test.That(t, tracker.NumSubscribers("odom"), test.ShouldEqual, 0)
	test.That(t, tracker.SetTransform("odom", spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, att.Visible(), test.ShouldBeFalse)

	next := NewGroup("grid2")
	old := att.SetObject(next)
	test.That(t, old, test.ShouldEqual, obj)
	test.That(t, att.Object(), test.ShouldEqual, next)
	test.That(t, att.Children(), test.ShouldResemble, []Node{next})

	att.Dispose()
	test.That(t, next.Disposals(), test.ShouldEqual, 1)
	test.That(t, obj.Disposals(), test.ShouldEqual, 0)
}

func TestAttachmentConfigErrors(t *testing.T) {
	tracker := referenceframe.NewFrameTracker("", nil)
	_, err := NewAttachment(AttachmentConfig{Tracker: tracker})
	test.That(t, err, test.ShouldEqual, ErrNilObject)
	_, err = NewAttachment(AttachmentConfig{Object: NewGroup("x")})
	test.That(t, err, test.ShouldEqual, ErrNilTracker)
	_, err = NewEntity(nil, nil)
	test.That(t, err, test.ShouldEqual, ErrNilObject)
}

func TestEntityDestroyOrder(t *testing.T) {
	var log []string
	tracker := &recordingTracker{referenceframe.NewFrameTracker("world", nil), &log}
	root := &recordingRoot{NewGroup("root"), &log}
	obj := &recordingNode{NewNodeBase("marker"), &log}

	e, err := NewEntity(obj, &AttachmentConfig{FrameID: "base", Tracker: tracker})
	test.That(t, err, test.ShouldBeNil)
	e.Install(root)
	test.That(t, root.Children(), test.ShouldResemble, []Node{e.Attachment})
	test.That(t, e.Node(), test.ShouldEqual, e.Attachment)

	e.Destroy(root)
	test.That(t, log, test.ShouldResemble, []string{"unsubscribe:base", "detach", "dispose"})
	test.That(t, root.Children(), test.ShouldBeEmpty)
	test.That(t, obj.Disposals(), test.ShouldEqual, 1)
}

func TestEntityWithoutTracking(t *testing.T) {
	root := NewGroup("root")
	obj := NewGroup("grid")
	e, err := NewEntity(obj, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Node(), test.ShouldEqual, obj)

	e.Install(root)
	test.That(t, root.Children(), test.ShouldResemble, []Node{obj})
	e.Destroy(root)
	test.That(t, root.Children(), test.ShouldBeEmpty)
	test.That(t, obj.Disposals(), test.ShouldEqual, 1)
}

func TestChangeNotifier(t *testing.T) {
	var cn ChangeNotifier
	var calls []string
	cn.OnChange(func() { calls = append(calls, "a") })
	remove := cn.OnChange(func() { calls = append(calls, "b") })

	cn.NotifyChange()
	remove()
	remove()
	cn.NotifyChange()
	test.That(t, calls, test.ShouldResemble, []string{"a", "b", "a"})
}
