package msgs

// MarkerShape is the visualization_msgs/Marker type field.
type MarkerShape int32

// Marker shapes.
const (
	Arrow MarkerShape = iota
	Cube
	Sphere
	Cylinder
	LineStrip
	LineList
	CubeList
	SphereList
	Points
	TextViewFacing
	MeshResource
	TriangleList
)

// String returns the ROS name of the shape.
func (s MarkerShape) String() string {
	switch s {
	case Arrow:
		return "ARROW"
	case Cube:
		return "CUBE"
	case Sphere:
		return "SPHERE"
	case Cylinder:
		return "CYLINDER"
	case LineStrip:
		return "LINE_STRIP"
	case LineList:
		return "LINE_LIST"
	case CubeList:
		return "CUBE_LIST"
	case SphereList:
		return "SPHERE_LIST"
	case Points:
		return "POINTS"
	case TextViewFacing:
		return "TEXT_VIEW_FACING"
	case MeshResource:
		return "MESH_RESOURCE"
	case TriangleList:
		return "TRIANGLE_LIST"
	default:
		return "UNKNOWN"
	}
}

// Marker is a visualization_msgs/Marker. Action is kept as the raw wire code; the marker client
// owns its interpretation.
type Marker struct {
	Header                   Header      `mapstructure:"header" json:"header"`
	Ns                       string      `mapstructure:"ns" json:"ns"`
	ID                       int32       `mapstructure:"id" json:"id"`
	Type                     MarkerShape `mapstructure:"type" json:"type"`
	Action                   int32       `mapstructure:"action" json:"action"`
	Pose                     Pose        `mapstructure:"pose" json:"pose"`
	Scale                    Vector3     `mapstructure:"scale" json:"scale"`
	Color                    ColorRGBA   `mapstructure:"color" json:"color"`
	Lifetime                 Duration    `mapstructure:"lifetime" json:"lifetime"`
	FrameLocked              bool        `mapstructure:"frame_locked" json:"frame_locked"`
	Points                   []Point     `mapstructure:"points" json:"points"`
	Colors                   []ColorRGBA `mapstructure:"colors" json:"colors"`
	Text                     string      `mapstructure:"text" json:"text"`
	MeshResource             string      `mapstructure:"mesh_resource" json:"mesh_resource"`
	MeshUseEmbeddedMaterials bool        `mapstructure:"mesh_use_embedded_materials" json:"mesh_use_embedded_materials"`
}

// MarkerArray is a visualization_msgs/MarkerArray.
type MarkerArray struct {
	Markers []Marker `mapstructure:"markers" json:"markers"`
}
