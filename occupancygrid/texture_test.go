package occupancygrid

import (
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"go.viam.com/test"

	"go.viam.com/rosscene/msgs"
)

func TestShade(t *testing.T) {
	test.That(t, Shade(-1), test.ShouldEqual, uint8(127))
	test.That(t, Shade(0), test.ShouldEqual, uint8(255))
	test.That(t, Shade(100), test.ShouldEqual, uint8(0))
	test.That(t, Shade(50), test.ShouldEqual, uint8(128))
}

func TestTextureBuilder(t *testing.T) {
	g := msgs.OccupancyGrid{
		Info: msgs.MapMetaData{Resolution: 0.25, Width: 2, Height: 2},
		// first row is the bottom of the image
		Data: []int8{0, 100, -1, 50},
	}
	node, err := TextureBuilder{Color: colorful.Color{R: 1, G: 1, B: 1}, Opacity: 1}.Build(g)
	test.That(t, err, test.ShouldBeNil)
	tex := node.(*Texture)

	test.That(t, tex.Image.NRGBAAt(0, 1), test.ShouldResemble, color.NRGBA{255, 255, 255, 255})
	test.That(t, tex.Image.NRGBAAt(1, 1), test.ShouldResemble, color.NRGBA{0, 0, 0, 255})
	test.That(t, tex.Image.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{127, 127, 127, 255})
	test.That(t, tex.Image.NRGBAAt(1, 0), test.ShouldResemble, color.NRGBA{128, 128, 128, 255})

	w, h := tex.Extent()
	test.That(t, w, test.ShouldEqual, 0.5)
	test.That(t, h, test.ShouldEqual, 0.5)
}

func TestTextureTint(t *testing.T) {
	g := msgs.OccupancyGrid{Info: msgs.MapMetaData{Resolution: 1, Width: 1, Height: 1}, Data: []int8{0}}
	node, err := TextureBuilder{Color: colorful.Color{R: 1, G: 0, B: 0}, Opacity: 0.5}.Build(g)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.(*Texture).Image.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{255, 0, 0, 128})
}
