package gis

import (
	"math"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

const (
	ImageWidth  = 400
	ImageHeight = 300

	// MinPadding is the smallest padding added on each side, in meters.
	MinPadding = 30.0
	// PaddingRatio of the extent is added on each side when larger than
	// MinPadding.
	PaddingRatio = 0.5
)

// Extent is the tight bounding box of every vertex.
func Extent(rings [][]property.Point) (property.BBox, bool) {
	box := property.BBox{
		XMin: math.Inf(1),
		YMin: math.Inf(1),
		XMax: math.Inf(-1),
		YMax: math.Inf(-1),
	}
	found := false
	for _, ring := range rings {
		for _, p := range ring {
			box.XMin = math.Min(box.XMin, p.X)
			box.YMin = math.Min(box.YMin, p.Y)
			box.XMax = math.Max(box.XMax, p.X)
			box.YMax = math.Max(box.YMax, p.Y)
			found = true
		}
	}
	if !found {
		return property.BBox{}, false
	}
	return box, true
}

// Pad grows each axis of box symmetrically by max(MinPadding,
// PaddingRatio * extent) per side.
func Pad(box property.BBox) property.BBox {
	padX := math.Max(MinPadding, box.Width()*PaddingRatio)
	padY := math.Max(MinPadding, box.Height()*PaddingRatio)
	return property.BBox{
		XMin: box.XMin - padX,
		YMin: box.YMin - padY,
		XMax: box.XMax + padX,
		YMax: box.YMax + padY,
	}
}

// FitAspect grows the short axis of box around its center until the box has
// the aspect ratio of a width x height image.
func FitAspect(box property.BBox, width, height int) property.BBox {
	target := float64(width) / float64(height)
	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return box
	}

	cx := (box.XMin + box.XMax) / 2
	cy := (box.YMin + box.YMax) / 2
	if w/h > target {
		h = w / target
	} else {
		w = h * target
	}
	return property.BBox{
		XMin: cx - w/2,
		YMin: cy - h/2,
		XMax: cx + w/2,
		YMax: cy + h/2,
	}
}

// ImageBBox is the box imagery of the parcel is requested for.
func ImageBBox(rings [][]property.Point) (property.BBox, bool) {
	extent, ok := Extent(rings)
	if !ok {
		return property.BBox{}, false
	}
	return FitAspect(Pad(extent), ImageWidth, ImageHeight), true
}
