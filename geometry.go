package pptxhtml

import "math"

// Fallback frame for shapes whose transform is missing or incomplete:
// position 0, size 100 px.
const (
	defaultShapeOffset int64 = 0
	defaultShapeExtent int64 = 100 * emuPerPixel
)

// GeometryOf reads a shape's frame from its transform (p:spPr/a:xfrm for
// shapes and pictures, p:grpSpPr/a:xfrm for groups, p:xfrm for graphic frames).
// Absent fields take the fallback frame instead of failing.
func GeometryOf(shape *Node) Geometry {
	xfrm := transformOf(shape)
	off := xfrm.Child("a:off")
	ext := xfrm.Child("a:ext")
	return Geometry{
		X:        off.IntAttr("x", defaultShapeOffset),
		Y:        off.IntAttr("y", defaultShapeOffset),
		Width:    ext.IntAttr("cx", defaultShapeExtent),
		Height:   ext.IntAttr("cy", defaultShapeExtent),
		Rotation: float64(xfrm.IntAttr("rot", 0)) / angleUnit,
		FlipH:    xfrm.Attr("flipH") == "1",
		FlipV:    xfrm.Attr("flipV") == "1",
	}
}

func transformOf(shape *Node) *Node {
	if shape == nil {
		return nil
	}
	switch shape.Name {
	case "p:grpSp":
		return shape.Path("p:grpSpPr", "a:xfrm")
	case "p:graphicFrame":
		return shape.Child("p:xfrm")
	default:
		return shape.Path("p:spPr", "a:xfrm")
	}
}

// groupTransform maps child-space coordinates of a group into its parent's space.
type groupTransform struct {
	offX, offY     int64
	chOffX, chOffY int64
	scaleX, scaleY float64
	rotation       float64
}

// groupTransformOf reads a:off/a:ext/a:chOff/a:chExt of a p:grpSp.
func groupTransformOf(group *Node) groupTransform {
	xfrm := group.Path("p:grpSpPr", "a:xfrm")
	t := groupTransform{
		offX:     xfrm.Child("a:off").IntAttr("x", 0),
		offY:     xfrm.Child("a:off").IntAttr("y", 0),
		chOffX:   xfrm.Child("a:chOff").IntAttr("x", 0),
		chOffY:   xfrm.Child("a:chOff").IntAttr("y", 0),
		scaleX:   1,
		scaleY:   1,
		rotation: float64(xfrm.IntAttr("rot", 0)) / angleUnit,
	}
	ext := xfrm.Child("a:ext")
	chExt := xfrm.Child("a:chExt")
	if cx, chx := ext.IntAttr("cx", 0), chExt.IntAttr("cx", 0); cx > 0 && chx > 0 {
		t.scaleX = float64(cx) / float64(chx)
	}
	if cy, chy := ext.IntAttr("cy", 0), chExt.IntAttr("cy", 0); cy > 0 && chy > 0 {
		t.scaleY = float64(cy) / float64(chy)
	}
	return t
}

type point struct{ X, Y int64 }

func (t groupTransform) apply(x, y int64) point {
	return point{
		X: t.offX + int64(math.Round(float64(x-t.chOffX)*t.scaleX)),
		Y: t.offY + int64(math.Round(float64(y-t.chOffY)*t.scaleY)),
	}
}

// applyTo maps a child geometry into parent space.
func (t groupTransform) applyTo(g Geometry) Geometry {
	p := t.apply(g.X, g.Y)
	g.X, g.Y = p.X, p.Y
	g.Width = int64(math.Round(float64(g.Width) * t.scaleX))
	g.Height = int64(math.Round(float64(g.Height) * t.scaleY))
	g.Rotation = normalizeDegrees(g.Rotation + t.rotation)
	return g
}

// groupChain is the stack of enclosing groups, outermost first.
type groupChain []groupTransform

// applyTo maps a geometry from the innermost group's child space to slide space.
func (c groupChain) applyTo(g Geometry) Geometry {
	for i := len(c) - 1; i >= 0; i-- {
		g = c[i].applyTo(g)
	}
	return g
}

// normalizeDegrees maps an angle into [0, 360).
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
