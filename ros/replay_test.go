package ros

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rosscene/logging"
	"go.viam.com/rosscene/msgs"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []Record
	notify    chan struct{}
	err       error
}

func (rp *recordingPublisher) Publish(topic string, msg interface{}) error {
	if rp.err != nil {
		return rp.err
	}
	rp.mu.Lock()
	rp.published = append(rp.published, Record{Topic: topic, Message: msg})
	rp.mu.Unlock()
	if rp.notify != nil {
		rp.notify <- struct{}{}
	}
	return nil
}

func TestTopicKey(t *testing.T) {
	test.That(t, TopicKey("/visualization_marker_array"), test.ShouldEqual, "visualization_marker_array")
	test.That(t, TopicKey("/Robot/Map"), test.ShouldEqual, "robot_map")
}

func TestDecodeRecord(t *testing.T) {
	raw := map[string]interface{}{
		"meta": map[string]interface{}{"secs": float64(12), "nsecs": float64(500)},
		"data": map[string]interface{}{
			"header": map[string]interface{}{"frame_id": "map"},
			"info":   map[string]interface{}{"resolution": 0.05, "width": float64(1), "height": float64(1)},
			"data":   []interface{}{float64(100)},
		},
	}
	r, err := decodeRecord("/map", msgs.OccupancyGridType, raw)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Time, test.ShouldEqual, time.Unix(12, 500))
	grid, ok := r.Message.(msgs.OccupancyGrid)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, grid.Header.FrameID, test.ShouldEqual, "map")
	test.That(t, grid.Data, test.ShouldResemble, []int8{100})

	_, err = decodeRecord("/map", "std_msgs/String", raw)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplayAsFastAsPossible(t *testing.T) {
	base := time.Unix(100, 0)
	records := []Record{
		{Topic: "/map", Time: base, Message: 1},
		{Topic: "/octomap_full", Time: base.Add(time.Hour), Message: 2},
	}
	pub := &recordingPublisher{}
	test.That(t, Replay(context.Background(), records, pub, ReplayOptions{}, logging.NewTestLogger(t)), test.ShouldBeNil)
	test.That(t, pub.published, test.ShouldHaveLength, 2)
	test.That(t, pub.published[1].Topic, test.ShouldEqual, "/octomap_full")

	pub.err = errors.New("bus closed")
	err := Replay(context.Background(), records, pub, ReplayOptions{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplayPacing(t *testing.T) {
	clk := clock.NewMock()
	base := time.Unix(100, 0)
	records := []Record{
		{Topic: "/map", Time: base, Message: 1},
		{Topic: "/map", Time: base.Add(2 * time.Second), Message: 2},
	}
	pub := &recordingPublisher{notify: make(chan struct{}, 2)}
	done := make(chan error, 1)
	go func() {
		done <- Replay(context.Background(), records, pub, ReplayOptions{Speed: 2, Clock: clk}, logging.NewTestLogger(t))
	}()

	<-pub.notify
	for second := false; !second; {
		select {
		case <-pub.notify:
			second = true
		case <-time.After(10 * time.Millisecond):
			clk.Add(250 * time.Millisecond)
		}
	}
	test.That(t, <-done, test.ShouldBeNil)
	// two seconds of bag time at double speed
	test.That(t, clk.Now().Sub(time.Unix(0, 0)), test.ShouldBeGreaterThanOrEqualTo, time.Second)
}

func TestReplayCancelled(t *testing.T) {
	base := time.Unix(100, 0)
	records := []Record{
		{Topic: "/map", Time: base, Message: 1},
		{Topic: "/map", Time: base.Add(time.Hour), Message: 2},
	}
	ctx, cancel := context.WithCancel(context.Background())
	pub := &recordingPublisher{notify: make(chan struct{}, 2)}
	done := make(chan error, 1)
	go func() {
		done <- Replay(ctx, records, pub, ReplayOptions{Speed: 1, Clock: clock.NewMock()}, logging.NewTestLogger(t))
	}()
	<-pub.notify
	cancel()
	test.That(t, <-done, test.ShouldEqual, context.Canceled)
	test.That(t, pub.published, test.ShouldHaveLength, 1)
}
