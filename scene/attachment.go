package scene

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rosscene/referenceframe"
	"go.viam.com/rosscene/spatialmath"
)

var (
	// ErrNilObject is returned when an attachment is built around nothing.
	ErrNilObject = errors.New("attachment needs an object")
	// ErrNilTracker is returned when an attachment is built without a frame tracker.
	ErrNilTracker = errors.New("attachment needs a frame tracker")
)

// AttachmentConfig describes the frame an Attachment follows and the object it hosts.
type AttachmentConfig struct {
	FrameID string
	Tracker referenceframe.Tracker
	// Pose is the offset of the object inside the tracked frame.
	Pose   spatialmath.Pose
	Object Node
}

// Attachment hosts a renderable object and follows a named reference frame through a Tracker.
// It stays hidden until the first transform for its frame arrives.
type Attachment struct {
	*NodeBase

	trackMu    sync.Mutex
	tracker    referenceframe.Tracker
	frameID    string
	offset     spatialmath.Pose
	trackingID referenceframe.TrackingID
	tracking   bool

	objMu  sync.Mutex
	object Node
}

// NewAttachment wraps cfg.Object and starts tracking cfg.FrameID.
func NewAttachment(cfg AttachmentConfig) (*Attachment, error) {
	if cfg.Object == nil {
		return nil, ErrNilObject
	}
	if cfg.Tracker == nil {
		return nil, ErrNilTracker
	}
	a := &Attachment{
		NodeBase: NewNodeBase("attachment:" + cfg.FrameID),
		tracker:  cfg.Tracker,
		offset:   cfg.Pose,
		object:   cfg.Object,
	}
	a.SetVisible(false)
	a.Add(cfg.Object)
	a.subscribe(cfg.FrameID)
	return a, nil
}

func (a *Attachment) subscribe(frameID string) {
	a.trackMu.Lock()
	a.frameID = frameID
	a.tracking = true
	a.trackMu.Unlock()

	// The tracker may call back synchronously, so the lock is not held across Subscribe.
	id := a.tracker.Subscribe(frameID, a.onTransform)

	a.trackMu.Lock()
	a.trackingID = id
	a.trackMu.Unlock()
}

func (a *Attachment) onTransform(world spatialmath.Pose) {
	a.trackMu.Lock()
	tracking, offset := a.tracking, a.offset
	a.trackMu.Unlock()
	if !tracking {
		return
	}
	a.SetPose(spatialmath.Compose(world, offset))
	a.SetVisible(true)
}

// FrameID returns the frame currently tracked.
func (a *Attachment) FrameID() string {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.frameID
}

// Tracking reports whether the attachment is subscribed to its frame.
func (a *Attachment) Tracking() bool {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracking
}

// UnsubscribeTracking stops following the frame. Calling it again is a no-op.
func (a *Attachment) UnsubscribeTracking() {
	a.trackMu.Lock()
	if !a.tracking {
		a.trackMu.Unlock()
		return
	}
	a.tracking = false
	frameID, id := a.frameID, a.trackingID
	a.trackMu.Unlock()

	a.tracker.Unsubscribe(frameID, id)
}

// Rebind moves the attachment to another frame, dropping the previous subscription first. The
// attachment is hidden until the new frame resolves.
func (a *Attachment) Rebind(frameID string) {
	a.UnsubscribeTracking()
	a.SetVisible(false)
	a.subscribe(frameID)
}

// Object returns the hosted object.
func (a *Attachment) Object() Node {
	a.objMu.Lock()
	defer a.objMu.Unlock()
	return a.object
}

// SetObject swaps the hosted object and returns the previous one, still undisposed.
func (a *Attachment) SetObject(object Node) Node {
	a.objMu.Lock()
	old := a.object
	a.object = object
	a.objMu.Unlock()

	if old != nil {
		a.Remove(old)
	}
	a.Add(object)
	return old
}

// Dispose stops tracking and disposes the hosted object.
func (a *Attachment) Dispose() {
	a.UnsubscribeTracking()
	if obj := a.Object(); obj != nil {
		obj.Dispose()
	}
	a.NodeBase.Dispose()
}
