package markers

import (
	"path"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/scene"
)

// Object is a renderable marker.
type Object interface {
	scene.Node
	// Update applies m in place. It returns false when the existing object cannot represent m,
	// in which case the marker is removed.
	Update(m msgs.Marker) bool
}

// A Builder turns a marker directive into a renderable object.
type Builder interface {
	Build(m msgs.Marker) (Object, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(m msgs.Marker) (Object, error)

// Build calls f.
func (f BuilderFunc) Build(m msgs.Marker) (Object, error) {
	return f(m)
}

const packagePrefix = "package://"

// GeometryBuilder is the default Builder. Mesh resources given as package:// URLs are resolved
// against a base path.
type GeometryBuilder struct {
	path  string
	clock clock.Clock
}

// NewGeometryBuilder returns a builder resolving mesh resources against basePath. A nil clock uses
// the wall clock.
func NewGeometryBuilder(basePath string, clk clock.Clock) *GeometryBuilder {
	if clk == nil {
		clk = clock.New()
	}
	return &GeometryBuilder{path: basePath, clock: clk}
}

// ResolveResource maps a mesh resource onto the builder's base path.
func (gb *GeometryBuilder) ResolveResource(resource string) string {
	if !strings.HasPrefix(resource, packagePrefix) {
		return resource
	}
	rel := strings.TrimPrefix(resource, packagePrefix)
	if gb.path == "" {
		return rel
	}
	if strings.Contains(gb.path, "://") {
		return strings.TrimSuffix(gb.path, "/") + "/" + rel
	}
	return path.Join(gb.path, rel)
}

// Build implements Builder.
func (gb *GeometryBuilder) Build(m msgs.Marker) (Object, error) {
	if m.Type < msgs.Arrow || m.Type > msgs.TriangleList {
		return nil, errors.Errorf("unsupported marker type %d", m.Type)
	}
	gm := &GeometryMarker{
		NodeBase: scene.NewNodeBase(Key{m.Ns, m.ID}.String()),
		clock:    gb.clock,
		shape:    m.Type,
	}
	if m.Type == msgs.MeshResource {
		if m.MeshResource == "" {
			return nil, errors.New("mesh resource marker without a resource")
		}
		gm.resource = m.MeshResource
		gm.meshURL = gb.ResolveResource(m.MeshResource)
	}
	gm.apply(m)
	return gm, nil
}

// GeometryMarker is the renderable produced by GeometryBuilder. It keeps the vertex data it would
// upload and drops it on Dispose.
type GeometryMarker struct {
	*scene.NodeBase
	clock clock.Clock

	mu       sync.Mutex
	shape    msgs.MarkerShape
	scale    r3.Vector
	color    colorful.Color
	alpha    float64
	points   []r3.Vector
	colors   []colorful.Color
	text     string
	resource string
	meshURL  string
	expires  time.Time
	disposed bool
}

func toColorful(c msgs.ColorRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped()
}

// apply copies the mutable fields of m. Callers hold mu or own gm exclusively.
func (gm *GeometryMarker) apply(m msgs.Marker) {
	gm.SetPose(m.Pose.Spatial())
	gm.scale = r3.Vector{X: m.Scale.X, Y: m.Scale.Y, Z: m.Scale.Z}
	gm.color = toColorful(m.Color)
	gm.alpha = float64(m.Color.A)
	gm.text = m.Text

	gm.points = gm.points[:0]
	for _, p := range m.Points {
		gm.points = append(gm.points, p.Vector())
	}
	gm.colors = gm.colors[:0]
	for _, c := range m.Colors {
		gm.colors = append(gm.colors, toColorful(c))
	}

	gm.expires = time.Time{}
	if lifetime := m.Lifetime.Duration(); lifetime > 0 {
		gm.expires = gm.clock.Now().Add(lifetime)
	}
}

// hasVertexList reports whether the shape is built from the points list.
func hasVertexList(shape msgs.MarkerShape) bool {
	switch shape {
	case msgs.LineStrip, msgs.LineList, msgs.CubeList, msgs.SphereList, msgs.Points, msgs.TriangleList:
		return true
	default:
		return false
	}
}

// scalesInPlace reports whether a scale change can be applied without rebuilding.
func scalesInPlace(shape msgs.MarkerShape) bool {
	switch shape {
	case msgs.Cube, msgs.Sphere, msgs.Cylinder:
		return true
	default:
		return false
	}
}

// Update implements Object.
func (gm *GeometryMarker) Update(m msgs.Marker) bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	switch {
	case gm.disposed:
		return false
	case !gm.expires.IsZero() && !gm.clock.Now().Before(gm.expires):
		return false
	case m.Type != gm.shape:
		return false
	case !scalesInPlace(gm.shape) && r3.Vector{X: m.Scale.X, Y: m.Scale.Y, Z: m.Scale.Z} != gm.scale:
		return false
	case hasVertexList(gm.shape) && len(m.Points) != len(gm.points):
		return false
	case gm.shape == msgs.TextViewFacing && m.Text != gm.text:
		return false
	case gm.shape == msgs.MeshResource && m.MeshResource != gm.resource:
		return false
	}
	gm.apply(m)
	return true
}

// Shape returns the marker type.
func (gm *GeometryMarker) Shape() msgs.MarkerShape {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.shape
}

// Scale returns the marker scale.
func (gm *GeometryMarker) Scale() r3.Vector {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.scale
}

// Color returns the marker colour and its alpha.
func (gm *GeometryMarker) Color() (colorful.Color, float64) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.color, gm.alpha
}

// Points returns a copy of the vertex list.
func (gm *GeometryMarker) Points() []r3.Vector {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return append([]r3.Vector(nil), gm.points...)
}

// Text returns the text of a text marker.
func (gm *GeometryMarker) Text() string {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.text
}

// MeshURL returns the resolved mesh resource location.
func (gm *GeometryMarker) MeshURL() string {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.meshURL
}

// Expired reports whether the marker's lifetime has elapsed.
func (gm *GeometryMarker) Expired() bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return !gm.expires.IsZero() && !gm.clock.Now().Before(gm.expires)
}

// Dispose drops the vertex data.
func (gm *GeometryMarker) Dispose() {
	gm.mu.Lock()
	gm.disposed = true
	gm.points, gm.colors = nil, nil
	gm.mu.Unlock()
	gm.NodeBase.Dispose()
}
