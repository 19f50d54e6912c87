package geo

import (
	"math"
	"sales-route-service/internal/domain"
)

// Corridor is the path a route travels along: a two-point line or an
// ordered polyline through waypoints.
type Corridor struct {
	points []domain.Point
}

// NewCorridor builds the corridor start -> waypoints... -> end.
// Consecutive duplicate points are collapsed, so a loop without waypoints
// (start == end) degenerates to a single point and cannot be measured.
func NewCorridor(start, end domain.Point, waypoints ...domain.Point) Corridor {
	all := make([]domain.Point, 0, len(waypoints)+2)
	all = append(all, start)
	all = append(all, waypoints...)
	all = append(all, end)

	pts := make([]domain.Point, 0, len(all))
	for _, p := range all {
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		pts = append(pts, p)
	}
	return Corridor{points: pts}
}

// Validate checks vertex count and coordinates.
func (c Corridor) Validate() error {
	if len(c.points) < 2 {
		return domain.ErrInvalidPolyline
	}
	return validate(c.points...)
}

// DistanceTo measures p against the corridor: segment distance for a
// two-point corridor, polyline distance otherwise.
func (c Corridor) DistanceTo(p domain.Point) (float64, error) {
	if len(c.points) == 2 {
		return DistanceToSegment(p, c.points[0], c.points[1])
	}
	return DistanceToPolyline(p, c.points)
}

// ProximityScore maps a corridor distance to [0,100]: 100 on the line,
// linearly down to 0 at radius.
func ProximityScore(distanceMeters, radiusMeters float64) (float64, error) {
	if !(radiusMeters > 0) || math.IsInf(radiusMeters, 1) {
		return 0, domain.ErrInvalidRadius
	}
	if distanceMeters < 0 {
		distanceMeters = 0
	}
	return math.Max(0, 100*(1-distanceMeters/radiusMeters)), nil
}
