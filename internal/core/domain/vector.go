package domain

import "math"

// vecEpsilon bounds "equal" comparisons between unit vectors. Vectors built
// from nearby coordinates drift a few ulps under normalization, so exact
// equality would misclassify the degenerate branches in ClosestPointOn.
const vecEpsilon = 1e-9

// vec3 is a point on (or direction from the center of) the unit sphere.
// It only exists to serve the closest-point arc math and is never exported.
type vec3 struct {
	x, y, z float64
}

func vecFromGeo(p GeoPoint) vec3 {
	lat := toRad(p.Lat)
	lon := toRad(p.Lon)
	return vec3{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

func (v vec3) toGeo() GeoPoint {
	return GeoPoint{
		Lat: toDeg(math.Asin(v.z)),
		Lon: toDeg(math.Atan2(v.y, v.x)),
	}
}

func (v vec3) dot(o vec3) float64 {
	return v.x*o.x + v.y*o.y + v.z*o.z
}

func (v vec3) cross(o vec3) vec3 {
	return vec3{
		x: v.y*o.z - v.z*o.y,
		y: v.z*o.x - v.x*o.z,
		z: v.x*o.y - v.y*o.x,
	}
}

func (v vec3) norm() float64 {
	return math.Sqrt(v.dot(v))
}

func (v vec3) normalize() vec3 {
	n := v.norm()
	if n == 0 {
		return v
	}
	return vec3{x: v.x / n, y: v.y / n, z: v.z / n}
}

func (v vec3) neg() vec3 {
	return vec3{x: -v.x, y: -v.y, z: -v.z}
}

func (v vec3) approxEqual(o vec3) bool {
	return math.Abs(v.x-o.x) < vecEpsilon &&
		math.Abs(v.y-o.y) < vecEpsilon &&
		math.Abs(v.z-o.z) < vecEpsilon
}
