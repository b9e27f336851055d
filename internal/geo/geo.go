// Package geo turns zone-local log positions into simple feature geometry.
//
// Coordinates are stored as given. They are cartesian metres relative to the
// zone the entity was in, so there is no reference system to project into.
package geo

import (
	"github.com/sctracker/killfeed/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Point converts a position to an XYZ point. The origin maps to an empty
// point since the client logs zeros when it has no position. Coordinates the
// geometry rejects (NaN, infinities) also give an empty point.
func Point(p core.Position3D) geom.Point {
	if p == (core.Position3D{}) {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	point, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.DimXYZ,
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return point
}

// WKT renders a position as well-known text, e.g. "POINT Z (1 2 3)".
func WKT(p core.Position3D) string {
	return Point(p).AsText()
}

// Position reads an XYZ point back. It returns false for empty points.
func Position(pt geom.Point) (core.Position3D, bool) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}, false
	}
	return core.Position3D{X: c.X, Y: c.Y, Z: c.Z}, true
}
