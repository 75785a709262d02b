package occupancygrid

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/rosscene/msgs"
	"go.viam.com/rosscene/scene"
)

// unknownShade is the grey level of cells whose occupancy is unknown.
const unknownShade = 127

// A Builder turns an occupancy grid into a renderable object.
type Builder interface {
	Build(grid msgs.OccupancyGrid) (scene.Node, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(grid msgs.OccupancyGrid) (scene.Node, error)

// Build calls f.
func (f BuilderFunc) Build(grid msgs.OccupancyGrid) (scene.Node, error) {
	return f(grid)
}

// TextureBuilder renders a grid as a flat image, one pixel per cell, tinted by Color.
type TextureBuilder struct {
	Color   colorful.Color
	Opacity float64
}

// Shade returns the grey level of a cell value: free cells are bright, occupied cells dark.
func Shade(value int8) uint8 {
	if value < 0 || value > 100 {
		return unknownShade
	}
	return uint8(255 - (255*int(value))/100)
}

func tint(shade uint8, channel float64) uint8 {
	return uint8(math.Round(float64(shade) * channel))
}

// Build implements Builder.
func (tb TextureBuilder) Build(grid msgs.OccupancyGrid) (scene.Node, error) {
	width, height := int(grid.Info.Width), int(grid.Info.Height)
	if len(grid.Data) != width*height {
		return nil, errors.Errorf("grid is %dx%d but carries %d cells", width, height, len(grid.Data))
	}
	r, g, b := tb.Color.Clamped().RGB255()
	alpha := uint8(math.Round(255 * math.Max(0, math.Min(1, tb.Opacity))))

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			shade := Shade(grid.Data[row*width+col])
			// the first data row is at the origin, which is the bottom of the image
			img.SetNRGBA(col, height-row-1, color.NRGBA{
				R: tint(shade, float64(r)/255),
				G: tint(shade, float64(g)/255),
				B: tint(shade, float64(b)/255),
				A: alpha,
			})
		}
	}

	tex := &Texture{
		NodeBase:   scene.NewNodeBase("occupancy_grid"),
		Image:      img,
		Resolution: float64(grid.Info.Resolution),
	}
	tex.SetPose(grid.Info.Origin.Spatial())
	return tex, nil
}

// Texture is a grid rendered as an image lying in the XY plane of its origin pose.
type Texture struct {
	*scene.NodeBase
	Image      *image.NRGBA
	Resolution float64
}

// Extent returns the size of the texture in meters.
func (t *Texture) Extent() (width, height float64) {
	b := t.Image.Bounds()
	return float64(b.Dx()) * t.Resolution, float64(b.Dy()) * t.Resolution
}

// CellCenter returns the position of a cell relative to the texture's pose.
func (t *Texture) CellCenter(col, row int) r3.Vector {
	return r3.Vector{X: (float64(col) + 0.5) * t.Resolution, Y: (float64(row) + 0.5) * t.Resolution}
}

// Dispose drops the pixels.
func (t *Texture) Dispose() {
	t.Image = nil
	t.NodeBase.Dispose()
}
