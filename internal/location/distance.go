// Package location provides geographic points, position fixes and the
// distance geometry used to follow a walking route.
package location

import "math"

const (
	earthRadiusMeters = 6371000
	feetPerMeter      = 3.28084
	metersPerMile     = 1609.344

	// Segments shorter than this are treated as a single point.
	degenerateSegmentMeters = 1.0
)

// Haversine calculates the distance in meters between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PerpendicularDistance returns the distance in meters from p to the line
// through start and end. The height of the triangle (start, end, p) is
// derived from its area via Heron's formula. Segments shorter than a meter
// are degenerate and the distance to the nearer endpoint is returned.
func PerpendicularDistance(p, start, end Point) float64 {
	ab := Distance(start, end)
	ap := Distance(start, p)
	bp := Distance(end, p)
	if ab < degenerateSegmentMeters {
		return math.Min(ap, bp)
	}

	s := (ab + ap + bp) / 2
	// Rounding can push the product slightly below zero for collinear points.
	area := math.Sqrt(math.Max(0, s*(s-ab)*(s-ap)*(s-bp)))
	return 2 * area / ab
}

// MetersToFeet converts meters to feet
func MetersToFeet(meters float64) float64 {
	return meters * feetPerMeter
}

// MetersToMiles converts meters to miles
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}

// Offset returns the point reached by moving north and east of p by the
// given number of meters, using a local equirectangular approximation.
// It is accurate to well under a meter for the short hops between fixes.
func Offset(p Point, northMeters, eastMeters float64) Point {
	metersPerDegree := earthRadiusMeters * math.Pi / 180
	lat := p.Lat + northMeters/metersPerDegree
	lng := p.Lng + eastMeters/(metersPerDegree*math.Cos(p.Lat*math.Pi/180))
	return Point{Lat: lat, Lng: lng}
}
