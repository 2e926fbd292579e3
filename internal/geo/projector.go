// Package geo converts geographic coordinates into the overlay's world
// coordinate space.
//
// The canonical convention used by every pipeline in this repository:
// world coordinates are spherical-mercator meters relative to a fixed
// origin, multiplied by cos(originLat) so that one world unit is one
// ground meter at the origin. +X is east, +Y is up (altitude in meters,
// unscaled), +Z is south. All LOD and culling distances are expressed in
// this space.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	smath "github.com/verdantcity/sunshade/pkg/math"
)

// Projector converts (longitude, latitude, altitude) into world space.
// It is a pure value: safe to copy and share between pipelines.
type Projector struct {
	origin     orb.Point // lon/lat of the world origin
	originMerc orb.Point
	scale      float64 // cos(origin latitude), mercator stretch correction
}

// NewProjector creates a projector anchored at the given origin. The
// origin is typically the center of the initial viewport; all world
// coordinates are relative to it.
func NewProjector(originLon, originLat float64) Projector {
	origin := orb.Point{originLon, originLat}
	return Projector{
		origin:     origin,
		originMerc: project.WGS84.ToMercator(origin),
		scale:      math.Cos(originLat * math.Pi / 180.0),
	}
}

// Origin returns the geographic origin of the world space.
func (p Projector) Origin() (lon, lat float64) {
	return p.origin[0], p.origin[1]
}

// ToWorld projects a geographic coordinate into world space.
func (p Projector) ToWorld(lon, lat, alt float64) smath.Vec3 {
	merc := project.WGS84.ToMercator(orb.Point{lon, lat})
	return smath.Vec3{
		X: float32((merc[0] - p.originMerc[0]) * p.scale),
		Y: float32(alt),
		Z: float32(-(merc[1] - p.originMerc[1]) * p.scale),
	}
}

// ToWorldPoint projects a 2D geographic point onto the ground plane.
func (p Projector) ToWorldPoint(pt orb.Point) smath.Vec2 {
	w := p.ToWorld(pt[0], pt[1], 0)
	return smath.Vec2{X: w.X, Y: w.Z}
}

// ToGeo is the inverse of ToWorld.
func (p Projector) ToGeo(w smath.Vec3) (lon, lat, alt float64) {
	merc := orb.Point{
		p.originMerc[0] + float64(w.X)/p.scale,
		p.originMerc[1] - float64(w.Z)/p.scale,
	}
	pt := project.Mercator.ToWGS84(merc)
	return pt[0], pt[1], float64(w.Y)
}
