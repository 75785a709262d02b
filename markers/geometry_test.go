package markers

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/rosscene/msgs"
)

func TestResolveResource(t *testing.T) {
	gb := NewGeometryBuilder("/opt/ros/share", nil)
	test.That(t, gb.ResolveResource("package://robot/meshes/base.dae"), test.ShouldEqual, "/opt/ros/share/robot/meshes/base.dae")
	test.That(t, gb.ResolveResource("http://host/base.dae"), test.ShouldEqual, "http://host/base.dae")

	gb = NewGeometryBuilder("http://host/resources/", nil)
	test.That(t, gb.ResolveResource("package://robot/base.stl"), test.ShouldEqual, "http://host/resources/robot/base.stl")

	test.That(t, NewGeometryBuilder("", nil).ResolveResource("package://robot/base.stl"), test.ShouldEqual, "robot/base.stl")
}

func TestBuildErrors(t *testing.T) {
	gb := NewGeometryBuilder("", nil)

	m := marker("a", 1, ActionAdd)
	m.Type = msgs.MarkerShape(-1)
	_, err := gb.Build(m)
	test.That(t, err, test.ShouldNotBeNil)

	m.Type = msgs.MeshResource
	_, err = gb.Build(m)
	test.That(t, err, test.ShouldNotBeNil)

	m.MeshResource = "package://robot/base.dae"
	obj, err := gb.Build(m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.(*GeometryMarker).MeshURL(), test.ShouldEqual, "robot/base.dae")
}

func TestUpdateRejections(t *testing.T) {
	gb := NewGeometryBuilder("", nil)

	line := marker("a", 1, ActionAdd)
	line.Type = msgs.LineStrip
	line.Points = []msgs.Point{{X: 0}, {X: 1}}
	obj, err := gb.Build(line)
	test.That(t, err, test.ShouldBeNil)

	line.Points[1] = msgs.Point{X: 2}
	test.That(t, obj.Update(line), test.ShouldBeTrue)
	test.That(t, obj.(*GeometryMarker).Points()[1].X, test.ShouldEqual, 2.0)

	line.Points = append(line.Points, msgs.Point{X: 3})
	test.That(t, obj.Update(line), test.ShouldBeFalse)

	line.Points = line.Points[:2]
	line.Scale.X = 0.5
	test.That(t, obj.Update(line), test.ShouldBeFalse)

	text := marker("a", 2, ActionAdd)
	text.Type = msgs.TextViewFacing
	text.Text = "hello"
	obj, err = gb.Build(text)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.Update(text), test.ShouldBeTrue)
	text.Text = "bye"
	test.That(t, obj.Update(text), test.ShouldBeFalse)

	mesh := marker("a", 3, ActionAdd)
	mesh.Type = msgs.MeshResource
	mesh.MeshResource = "package://a.dae"
	obj, err = gb.Build(mesh)
	test.That(t, err, test.ShouldBeNil)
	mesh.MeshResource = "package://b.dae"
	test.That(t, obj.Update(mesh), test.ShouldBeFalse)
}

func TestDisposedMarkerCannotUpdate(t *testing.T) {
	m := marker("a", 1, ActionAdd)
	obj, err := NewGeometryBuilder("", nil).Build(m)
	test.That(t, err, test.ShouldBeNil)
	obj.Dispose()
	test.That(t, obj.Update(m), test.ShouldBeFalse)
	test.That(t, obj.(*GeometryMarker).Disposals(), test.ShouldEqual, 1)
}
