// Package msgs defines the decoded shapes of the messages the scene clients consume. Field names
// and mapstructure tags follow the ROS message definitions so records coming from rosbridge or a
// bag decode directly into them.
package msgs

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/rosscene/spatialmath"
)

// Message type names as they appear on the wire.
const (
	MarkerType        = "visualization_msgs/Marker"
	MarkerArrayType   = "visualization_msgs/MarkerArray"
	OccupancyGridType = "nav_msgs/OccupancyGrid"
	OctomapType       = "octomap_msgs/Octomap"
)

// Time is a ROS timestamp.
type Time struct {
	Secs  int32 `mapstructure:"secs" json:"secs"`
	Nsecs int32 `mapstructure:"nsecs" json:"nsecs"`
}

// Time converts the stamp into a time.Time.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Secs), int64(t.Nsecs))
}

// IsZero reports whether the stamp is unset.
func (t Time) IsZero() bool {
	return t.Secs == 0 && t.Nsecs == 0
}

// Duration is a ROS duration.
type Duration struct {
	Secs  int32 `mapstructure:"secs" json:"secs"`
	Nsecs int32 `mapstructure:"nsecs" json:"nsecs"`
}

// Duration converts into a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nsecs)
}

// Header carries the reference frame of a message.
type Header struct {
	Seq     uint32 `mapstructure:"seq" json:"seq"`
	Stamp   Time   `mapstructure:"stamp" json:"stamp"`
	FrameID string `mapstructure:"frame_id" json:"frame_id"`
}

// Point is a geometry_msgs/Point.
type Point struct {
	X float64 `mapstructure:"x" json:"x"`
	Y float64 `mapstructure:"y" json:"y"`
	Z float64 `mapstructure:"z" json:"z"`
}

// Vector converts the point to an r3.Vector.
func (p Point) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Quaternion is a geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `mapstructure:"x" json:"x"`
	Y float64 `mapstructure:"y" json:"y"`
	Z float64 `mapstructure:"z" json:"z"`
	W float64 `mapstructure:"w" json:"w"`
}

// Pose is a geometry_msgs/Pose.
type Pose struct {
	Position    Point      `mapstructure:"position" json:"position"`
	Orientation Quaternion `mapstructure:"orientation" json:"orientation"`
}

// Spatial converts the message pose into a spatialmath.Pose. An all-zero quaternion is treated as
// no rotation.
func (p Pose) Spatial() spatialmath.Pose {
	o := p.Orientation
	return spatialmath.NewPose(p.Position.Vector(), quat.Number{Real: o.W, Imag: o.X, Jmag: o.Y, Kmag: o.Z})
}

// Vector3 is a geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `mapstructure:"x" json:"x"`
	Y float64 `mapstructure:"y" json:"y"`
	Z float64 `mapstructure:"z" json:"z"`
}

// ColorRGBA is a std_msgs/ColorRGBA with components in [0, 1].
type ColorRGBA struct {
	R float32 `mapstructure:"r" json:"r"`
	G float32 `mapstructure:"g" json:"g"`
	B float32 `mapstructure:"b" json:"b"`
	A float32 `mapstructure:"a" json:"a"`
}

// New returns a pointer to a zero value of the named message type, or nil when the type is not one
// the clients understand.
func New(messageType string) interface{} {
	switch messageType {
	case MarkerType:
		return &Marker{}
	case MarkerArrayType:
		return &MarkerArray{}
	case OccupancyGridType:
		return &OccupancyGrid{}
	case OctomapType:
		return &Octomap{}
	default:
		return nil
	}
}
