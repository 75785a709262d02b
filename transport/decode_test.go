package transport

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"go.viam.com/test"

	"go.viam.com/rosscene/msgs"
)

func TestDecodeMarkerArray(t *testing.T) {
	var raw interface{}
	err := json.Unmarshal([]byte(`{"markers": [
		{"header": {"frame_id": "/base", "stamp": {"secs": 3, "nsecs": 5}},
		 "ns": "a", "id": 1, "type": 1, "action": 0,
		 "pose": {"position": {"x": 1, "y": 2, "z": 3}, "orientation": {"w": 1}},
		 "scale": {"x": 0.5, "y": 0.5, "z": 0.5},
		 "color": {"r": 1, "a": 1},
		 "lifetime": {"secs": 2}}
	]}`), &raw)
	test.That(t, err, test.ShouldBeNil)

	decoded, err := DecodeMessage(msgs.MarkerArrayType, raw)
	test.That(t, err, test.ShouldBeNil)
	array, ok := decoded.(msgs.MarkerArray)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, array.Markers, test.ShouldHaveLength, 1)
	m := array.Markers[0]
	test.That(t, m.Header.FrameID, test.ShouldEqual, "/base")
	test.That(t, m.Header.Stamp.Secs, test.ShouldEqual, int32(3))
	test.That(t, m.Ns, test.ShouldEqual, "a")
	test.That(t, m.ID, test.ShouldEqual, int32(1))
	test.That(t, m.Type, test.ShouldEqual, msgs.Cube)
	test.That(t, m.Pose.Position.Y, test.ShouldEqual, 2.0)
	test.That(t, m.Color.R, test.ShouldEqual, float32(1))
	test.That(t, m.Lifetime.Secs, test.ShouldEqual, int32(2))
}

func TestDecodeOctomapPayloads(t *testing.T) {
	payload := []byte{0xff, 0x01, 0x80}

	fromArray, err := DecodeMessage(msgs.OctomapType, map[string]interface{}{
		"binary": true,
		"id":     "OcTree",
		"data":   []interface{}{-1.0, 1.0, -128.0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromArray.(msgs.Octomap).Bytes(), test.ShouldResemble, payload)

	fromBase64, err := DecodeMessage(msgs.OctomapType, map[string]interface{}{
		"id":   "ColorOcTree",
		"data": base64.StdEncoding.EncodeToString(payload),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromBase64.(msgs.Octomap).Bytes(), test.ShouldResemble, payload)

	_, err = DecodeMessage(msgs.OctomapType, map[string]interface{}{"data": "not base64!"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeMessage("std_msgs/String", map[string]interface{}{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported message type")
}

func TestDecodeAttributes(t *testing.T) {
	var cfg struct {
		Topic      string  `json:"topic"`
		Continuous bool    `json:"continuous"`
		Opacity    float64 `json:"opacity"`
	}
	err := DecodeAttributes(map[string]interface{}{"topic": "/map", "continuous": "true", "opacity": 0.5}, &cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Topic, test.ShouldEqual, "/map")
	test.That(t, cfg.Continuous, test.ShouldBeTrue)
	test.That(t, cfg.Opacity, test.ShouldEqual, 0.5)
}
