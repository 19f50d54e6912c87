// Package geo provides great-circle distance and corridor primitives.
//
// All distances are in meters on a spherical Earth (mean radius). Exported
// functions validate their inputs and return domain.ErrInvalidCoordinate for
// out-of-range points; the unexported helpers assume validated input.
package geo

import (
	"math"
	"sales-route-service/internal/domain"
)

// EarthRadiusMeters is the IUGG mean Earth radius.
const EarthRadiusMeters = 6_371_008.8

// Distance returns the haversine great-circle distance between a and b.
func Distance(a, b domain.Point) (float64, error) {
	if err := validate(a, b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// DistanceToSegment returns the distance from p to the great-circle segment
// a->b. When the foot of the perpendicular falls outside the segment the
// distance to the nearer endpoint is returned.
func DistanceToSegment(p, a, b domain.Point) (float64, error) {
	if err := validate(p, a, b); err != nil {
		return 0, err
	}
	return segmentDistance(p, a, b), nil
}

// DistanceToPolyline returns the minimum segment distance from p to the
// ordered polyline pts. At least two points are required.
func DistanceToPolyline(p domain.Point, pts []domain.Point) (float64, error) {
	if len(pts) < 2 {
		return 0, domain.ErrInvalidPolyline
	}
	if err := validate(p); err != nil {
		return 0, err
	}
	if err := validate(pts...); err != nil {
		return 0, err
	}
	return polylineDistance(p, pts), nil
}

func validate(pts ...domain.Point) error {
	for _, p := range pts {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func haversine(a, b domain.Point) float64 {
	return EarthRadiusMeters * angularDistance(a, b)
}

// angularDistance is the central angle between a and b in radians.
func angularDistance(a, b domain.Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

// bearing is the initial great-circle bearing from a to b in radians.
func bearing(a, b domain.Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Atan2(y, x)
}

func segmentDistance(p, a, b domain.Point) float64 {
	d12 := angularDistance(a, b)
	if d12 == 0 {
		return haversine(p, a)
	}

	d13 := angularDistance(a, p)
	if d13 == 0 {
		return 0
	}

	dTheta := bearing(a, p) - bearing(a, b)

	// Foot of the perpendicular lies behind a.
	if math.Cos(dTheta) < 0 {
		return haversine(p, a)
	}

	xt := math.Asin(clampUnit(math.Sin(d13) * math.Sin(dTheta)))
	cosXt := math.Cos(xt)
	if cosXt == 0 {
		return haversine(p, a)
	}
	at := math.Acos(clampUnit(math.Cos(d13) / cosXt))

	// Foot of the perpendicular lies beyond b.
	if at > d12 {
		return haversine(p, b)
	}

	return math.Abs(xt) * EarthRadiusMeters
}

func polylineDistance(p domain.Point, pts []domain.Point) float64 {
	best := math.Inf(1)
	for i := 0; i < len(pts)-1; i++ {
		if d := segmentDistance(p, pts[i], pts[i+1]); d < best {
			best = d
		}
	}
	return best
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
