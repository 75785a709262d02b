package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/scene"
)

// ColorMode chooses how voxels are coloured.
type ColorMode string

// Colour modes. An empty mode colours trees decoded with colour by their node colours and every
// other tree with the solid colour.
const (
	ColorModeSolid     = ColorMode("solid")
	ColorModeColor     = ColorMode("color")
	ColorModeOccupancy = ColorMode("occupancy")
)

// RenderMode chooses which leaves become voxels.
type RenderMode string

// Render modes. An empty mode renders occupied leaves.
const (
	RenderOccupied = RenderMode("occupied")
	RenderFree     = RenderMode("free")
	RenderBoth     = RenderMode("both")
)

var (
	defaultColor   = colorful.Color{R: 0, G: 0.6, B: 1}
	defaultPalette = []colorful.Color{
		{R: 0.2, G: 0.2, B: 1},
		{R: 0.2, G: 1, B: 0.2},
		{R: 1, G: 0.2, B: 0.2},
	}
)

// VoxelOptions are rendering hints. Zero values select the defaults.
type VoxelOptions struct {
	ColorMode    ColorMode        `json:"color_mode"`
	RenderMode   RenderMode       `json:"voxel_render_mode"`
	Palette      []colorful.Color `json:"-"`
	PaletteScale float64          `json:"palette_scale"`
	Color        *colorful.Color  `json:"-"`
	Opacity      float64          `json:"opacity"`
}

// Voxel is one rendered cube.
type Voxel struct {
	Center r3.Vector
	Side   float64
	Color  colorful.Color
}

// VoxelMesh is the renderable produced from a Tree.
type VoxelMesh struct {
	*scene.NodeBase
	Voxels  []Voxel
	Opacity float64
}

// Dispose drops the voxels.
func (vm *VoxelMesh) Dispose() {
	vm.Voxels = nil
	vm.NodeBase.Dispose()
}

// BuildVoxels turns the leaves selected by opts into voxels.
func BuildVoxels(tree *Tree, opts VoxelOptions) (*VoxelMesh, error) {
	if tree == nil {
		return nil, errors.New("no tree to build voxels from")
	}
	include, err := leafFilter(opts.RenderMode)
	if err != nil {
		return nil, err
	}
	shade, err := shader(tree, opts)
	if err != nil {
		return nil, err
	}
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	mesh := &VoxelMesh{NodeBase: scene.NewNodeBase("octree"), Opacity: opacity}
	tree.Leaves(func(center r3.Vector, side float64, n *Node) bool {
		if include(n) {
			mesh.Voxels = append(mesh.Voxels, Voxel{Center: center, Side: side, Color: shade(center, n)})
		}
		return true
	})
	return mesh, nil
}

func leafFilter(mode RenderMode) (func(n *Node) bool, error) {
	switch mode {
	case "", RenderOccupied:
		return (*Node).Occupied, nil
	case RenderFree:
		return func(n *Node) bool { return !n.Occupied() }, nil
	case RenderBoth:
		return func(*Node) bool { return true }, nil
	default:
		return nil, errors.Errorf("unknown voxel render mode %q", mode)
	}
}

func shader(tree *Tree, opts VoxelOptions) (func(center r3.Vector, n *Node) colorful.Color, error) {
	solid := defaultColor
	if opts.Color != nil {
		solid = *opts.Color
	}
	mode := opts.ColorMode
	if mode == "" {
		mode = ColorModeSolid
		if tree.Colored {
			mode = ColorModeColor
		}
	}

	switch mode {
	case ColorModeSolid:
		return func(r3.Vector, *Node) colorful.Color { return solid }, nil
	case ColorModeColor:
		if !tree.Colored {
			return nil, errors.New("color mode needs a tree with colours")
		}
		return func(_ r3.Vector, n *Node) colorful.Color {
			c, _ := colorful.MakeColor(n.Color)
			return c
		}, nil
	case ColorModeOccupancy:
		palette := opts.Palette
		if len(palette) == 0 {
			palette = defaultPalette
		}
		scale := opts.PaletteScale
		if scale <= 0 {
			scale = 1
		}
		return func(_ r3.Vector, n *Node) colorful.Color {
			return PaletteColor(palette, n.Probability()*scale)
		}, nil
	default:
		return nil, errors.Errorf("unknown color mode %q", mode)
	}
}

// PaletteColor blends the palette at t in [0, 1], clamping t outside that range.
func PaletteColor(palette []colorful.Color, t float64) colorful.Color {
	switch len(palette) {
	case 0:
		return defaultColor
	case 1:
		return palette[0]
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(palette)-1)
	i := int(math.Floor(pos))
	if i >= len(palette)-1 {
		return palette[len(palette)-1]
	}
	return palette[i].BlendLab(palette[i+1], pos-float64(i)).Clamped()
}
