// Package referenceframe keeps a tree of named reference frames and notifies subscribers whenever
// the transform from a frame to the fixed frame changes.
package referenceframe

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/spatialmath"
)

// World is the default fixed frame.
const World = "world"

// TrackingID identifies one subscription made through a Tracker.
type TrackingID uuid.UUID

// TransformFunc receives the transform from a tracked frame to the fixed frame.
type TransformFunc func(pose spatialmath.Pose)

// A Tracker re-positions scene nodes as the reference frames they are attached to move.
type Tracker interface {
	// Subscribe registers fn for changes to frameID. If the transform is already known fn is
	// called before Subscribe returns.
	Subscribe(frameID string, fn TransformFunc) TrackingID
	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(frameID string, id TrackingID)
}

// ErrFrameCycle is returned when a frame would become its own ancestor.
var ErrFrameCycle = errors.New("frame would become its own ancestor")

type frame struct {
	parent string
	pose   spatialmath.Pose
}

// FrameTracker is an in-memory Tracker. Frames are attached to parents with a relative pose and
// the transform of a frame is the composition of every pose up to the fixed frame.
type FrameTracker struct {
	mu          sync.Mutex
	fixedFrame  string
	frames      map[string]frame
	subscribers map[string]map[TrackingID]TransformFunc
	logger      logging.Logger
}

// NewFrameTracker returns a tracker rooted at fixedFrame. An empty name uses World.
func NewFrameTracker(fixedFrame string, logger logging.Logger) *FrameTracker {
	if fixedFrame == "" {
		fixedFrame = World
	}
	return &FrameTracker{
		fixedFrame:  NormalizeFrameID(fixedFrame),
		frames:      map[string]frame{},
		subscribers: map[string]map[TrackingID]TransformFunc{},
		logger:      logger,
	}
}

// NormalizeFrameID strips the leading slash older tf publishers put in front of frame names.
func NormalizeFrameID(frameID string) string {
	return strings.TrimPrefix(frameID, "/")
}

// FixedFrame returns the name of the root frame.
func (ft *FrameTracker) FixedFrame() string {
	return ft.fixedFrame
}

// SetTransform places frameID directly under the fixed frame.
func (ft *FrameTracker) SetTransform(frameID string, pose spatialmath.Pose) error {
	return ft.SetFrame(frameID, ft.fixedFrame, pose)
}

// SetFrame sets the pose of frameID relative to parent and notifies the subscribers of frameID
// and of every frame below it whose transform is now resolvable.
func (ft *FrameTracker) SetFrame(frameID, parent string, pose spatialmath.Pose) error {
	frameID, parent = NormalizeFrameID(frameID), NormalizeFrameID(parent)
	if frameID == ft.fixedFrame {
		return errors.Errorf("cannot move the fixed frame %q", frameID)
	}

	ft.mu.Lock()
	for p := parent; p != ft.fixedFrame; {
		if p == frameID {
			ft.mu.Unlock()
			return errors.Wrapf(ErrFrameCycle, "%q under %q", frameID, parent)
		}
		f, ok := ft.frames[p]
		if !ok {
			break
		}
		p = f.parent
	}
	ft.frames[frameID] = frame{parent: parent, pose: pose}

	type notification struct {
		fns  []TransformFunc
		pose spatialmath.Pose
	}
	var pending []notification
	for _, name := range ft.descendantsLocked(frameID) {
		subs := ft.subscribers[name]
		if len(subs) == 0 {
			continue
		}
		world, ok := ft.transformLocked(name)
		if !ok {
			continue
		}
		n := notification{pose: world}
		for _, fn := range subs {
			n.fns = append(n.fns, fn)
		}
		pending = append(pending, n)
	}
	ft.mu.Unlock()

	for _, n := range pending {
		for _, fn := range n.fns {
			fn(n.pose)
		}
	}
	return nil
}

// RemoveFrame forgets frameID. Subscribers keep their last transform.
func (ft *FrameTracker) RemoveFrame(frameID string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	delete(ft.frames, NormalizeFrameID(frameID))
}

// Transform returns the transform from frameID to the fixed frame, if every link is known.
func (ft *FrameTracker) Transform(frameID string) (spatialmath.Pose, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.transformLocked(NormalizeFrameID(frameID))
}

func (ft *FrameTracker) transformLocked(frameID string) (spatialmath.Pose, bool) {
	world := spatialmath.NewZeroPose()
	for name := frameID; name != ft.fixedFrame; {
		f, ok := ft.frames[name]
		if !ok {
			return spatialmath.Pose{}, false
		}
		world = spatialmath.Compose(f.pose, world)
		name = f.parent
	}
	return world, true
}

// descendantsLocked returns frameID followed by every frame that has it as an ancestor.
func (ft *FrameTracker) descendantsLocked(frameID string) []string {
	out := []string{frameID}
	for i := 0; i < len(out); i++ {
		for name, f := range ft.frames {
			if f.parent == out[i] {
				out = append(out, name)
			}
		}
	}
	return out
}

// Subscribe implements Tracker.
func (ft *FrameTracker) Subscribe(frameID string, fn TransformFunc) TrackingID {
	frameID = NormalizeFrameID(frameID)
	id := TrackingID(uuid.New())

	ft.mu.Lock()
	subs, ok := ft.subscribers[frameID]
	if !ok {
		subs = map[TrackingID]TransformFunc{}
		ft.subscribers[frameID] = subs
	}
	subs[id] = fn
	world, known := ft.transformLocked(frameID)
	ft.mu.Unlock()

	if ft.logger != nil {
		ft.logger.Debugw("tracking frame", "frame", frameID, "known", known)
	}
	if known {
		fn(world)
	}
	return id
}

// Unsubscribe implements Tracker.
func (ft *FrameTracker) Unsubscribe(frameID string, id TrackingID) {
	frameID = NormalizeFrameID(frameID)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	subs, ok := ft.subscribers[frameID]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(ft.subscribers, frameID)
	}
}

// NumSubscribers returns how many subscriptions are active on frameID.
func (ft *FrameTracker) NumSubscribers(frameID string) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.subscribers[NormalizeFrameID(frameID)])
}
