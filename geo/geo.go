package geo

import "math"

// BBox is an axis-aligned rectangle in page user space. The origin is the
// lower-left corner of the page, so Y1 is the top edge.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Rect builds a normalised BBox from two corners.
func Rect(x0, y0, x1, y1 float64) BBox {
	return BBox{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// CenterY returns the vertical midpoint.
func (b BBox) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// IsEmpty reports whether the box has non-positive dimensions.
func (b BBox) IsEmpty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Contains returns true if the point (x, y) is within the box.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Union returns the smallest box covering both boxes. An empty receiver
// yields o unchanged.
func (b BBox) Union(o BBox) BBox {
	if b == (BBox{}) {
		return o
	}
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// OverlapsY reports whether the vertical extents intersect.
func (b BBox) OverlapsY(o BBox) bool {
	return b.Y0 < o.Y1 && o.Y0 < b.Y1
}

// OverlapsX reports whether the horizontal extents intersect.
func (b BBox) OverlapsX(o BBox) bool {
	return b.X0 < o.X1 && o.X0 < b.X1
}

// GapX is the horizontal distance between the boxes, zero when they overlap.
func (b BBox) GapX(o BBox) float64 {
	switch {
	case o.X0 >= b.X1:
		return o.X0 - b.X1
	case b.X0 >= o.X1:
		return b.X0 - o.X1
	default:
		return 0
	}
}

// Line is a straight segment, typically a ruling line drawn on a page.
type Line struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// IsHorizontal reports whether the segment is horizontal within tol and at
// least minLen long.
func (l Line) IsHorizontal(tol, minLen float64) bool {
	return math.Abs(l.Y1-l.Y0) < tol && math.Abs(l.X1-l.X0) > minLen
}

// IsVertical reports whether the segment is vertical within tol and at least
// minLen long.
func (l Line) IsVertical(tol, minLen float64) bool {
	return math.Abs(l.X1-l.X0) < tol && math.Abs(l.Y1-l.Y0) > minLen
}

// Bounds returns the segment's bounding box.
func (l Line) Bounds() BBox { return Rect(l.X0, l.Y0, l.X1, l.Y1) }
