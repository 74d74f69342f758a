package gis

import (
	"math"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

// EarthRadius is the sphere radius of Web Mercator (EPSG:3857) in meters.
const EarthRadius = 6378137.0

// ToLatLng inverts the spherical Web Mercator projection.
func ToLatLng(p property.Point) property.LatLng {
	lng := p.X / EarthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p.Y/EarthRadius)) - math.Pi/2) * 180 / math.Pi
	return property.LatLng{Lat: lat, Lng: lng}
}

// ToMercator projects a geographic coordinate to Web Mercator.
func ToMercator(c property.LatLng) property.Point {
	x := c.Lng * math.Pi / 180 * EarthRadius
	y := math.Log(math.Tan(math.Pi/4+c.Lat*math.Pi/360)) * EarthRadius
	return property.Point{X: x, Y: y}
}

// GeographicRings applies ToLatLng to every vertex.
func GeographicRings(rings [][]property.Point) [][]property.LatLng {
	out := make([][]property.LatLng, len(rings))
	for i, ring := range rings {
		out[i] = make([]property.LatLng, len(ring))
		for j, p := range ring {
			out[i][j] = ToLatLng(p)
		}
	}
	return out
}

// Centroid is the area centroid of the first ring, or the mean of its
// vertices when the ring has no area.
func Centroid(rings [][]property.Point) property.Point {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return property.Point{}
	}
	ring := rings[0]

	// relative to the first vertex, projected coordinates are large enough
	// for the cross products to lose precision
	origin := ring[0]
	var area, cx, cy float64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		ax, ay := a.X-origin.X, a.Y-origin.Y
		bx, by := b.X-origin.X, b.Y-origin.Y
		cross := ax*by - bx*ay
		area += cross
		cx += (ax + bx) * cross
		cy += (ay + by) * cross
	}
	if math.Abs(area) > 1e-9 {
		area /= 2
		return property.Point{
			X: origin.X + cx/(6*area),
			Y: origin.Y + cy/(6*area),
		}
	}

	var sx, sy float64
	for _, p := range ring {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(ring))
	return property.Point{X: sx / n, Y: sy / n}
}
