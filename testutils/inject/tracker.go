package inject

import (
	"sync"

	"go.viam.com/rosscene/referenceframe"
)

// Tracker is an injected referenceframe.Tracker. Without injected functions it forwards to the
// embedded Tracker. Every call is counted.
type Tracker struct {
	referenceframe.Tracker
	SubscribeFunc   func(frameID string, fn referenceframe.TransformFunc) referenceframe.TrackingID
	UnsubscribeFunc func(frameID string, id referenceframe.TrackingID)

	mu           sync.Mutex
	subscribes   map[string]int
	unsubscribes map[string]int
}

// NewTracker wraps tracker.
func NewTracker(tracker referenceframe.Tracker) *Tracker {
	return &Tracker{Tracker: tracker}
}

// Subscribe calls the injected Subscribe or the real version.
func (t *Tracker) Subscribe(frameID string, fn referenceframe.TransformFunc) referenceframe.TrackingID {
	t.mu.Lock()
	if t.subscribes == nil {
		t.subscribes = map[string]int{}
	}
	t.subscribes[frameID]++
	t.mu.Unlock()
	if t.SubscribeFunc == nil {
		return t.Tracker.Subscribe(frameID, fn)
	}
	return t.SubscribeFunc(frameID, fn)
}

// Unsubscribe calls the injected Unsubscribe or the real version.
func (t *Tracker) Unsubscribe(frameID string, id referenceframe.TrackingID) {
	t.mu.Lock()
	if t.unsubscribes == nil {
		t.unsubscribes = map[string]int{}
	}
	t.unsubscribes[frameID]++
	t.mu.Unlock()
	if t.UnsubscribeFunc == nil {
		t.Tracker.Unsubscribe(frameID, id)
		return
	}
	t.UnsubscribeFunc(frameID, id)
}

// Subscribes returns how many times frameID was subscribed.
func (t *Tracker) Subscribes(frameID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes[frameID]
}

// Unsubscribes returns how many times frameID was unsubscribed.
func (t *Tracker) Unsubscribes(frameID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsubscribes[frameID]
}
