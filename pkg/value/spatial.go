package value

import "math"

// CRS tags the coordinate reference system of a Point (§4.1).
type CRS int

const (
	CRSCartesian2D CRS = iota
	CRSCartesian3D
	CRSGeographic2D
	CRSGeographic3D
)

func (c CRS) String() string {
	switch c {
	case CRSCartesian2D:
		return "cartesian-2d"
	case CRSCartesian3D:
		return "cartesian-3d"
	case CRSGeographic2D:
		return "wgs84-2d"
	case CRSGeographic3D:
		return "wgs84-3d"
	default:
		return "unknown"
	}
}

// Point is a spatial value tagged with a CRS. Z is ignored (and should be
// zero) for the 2D CRSes.
type Point struct {
	CRS  CRS
	X, Y, Z float64
}

func (Point) Kind() Kind   { return KindPoint }
func (Point) valueMarker() {}

// earthRadiusMeters is the mean Earth radius used for Haversine distance
// (§4.1), matching the reference implementation's constant exactly.
const earthRadiusMeters = 6371008.8

// Distance computes the distance between two points of matching CRS:
// Euclidean for cartesian, Haversine for geographic. Mismatched CRS
// returns Null (§4.1).
func Distance(a, b Point) Value {
	if a.CRS != b.CRS {
		return NullValue
	}
	switch a.CRS {
	case CRSCartesian2D:
		return Float(math.Hypot(a.X-b.X, a.Y-b.Y))
	case CRSCartesian3D:
		dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
		return Float(math.Sqrt(dx*dx + dy*dy + dz*dz))
	case CRSGeographic2D, CRSGeographic3D:
		return Float(haversine(a, b))
	default:
		return NullValue
	}
}

func haversine(a, b Point) float64 {
	lat1 := deg2rad(a.Y)
	lat2 := deg2rad(b.Y)
	dLat := deg2rad(b.Y - a.Y)
	dLon := deg2rad(b.X - a.X)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	surface := earthRadiusMeters * c
	if a.CRS == CRSGeographic3D {
		dz := a.Z - b.Z
		return math.Sqrt(surface*surface + dz*dz)
	}
	return surface
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// NewPointFromMap constructs a Point from a component map as accepted by
// the `point()` constructor function: {x, y[, z], crs?} or
// {longitude, latitude[, height], crs?}.
func NewPointFromMap(m Map) (Point, bool) {
	if lon, ok := m.Get("longitude"); ok {
		lat, latOk := m.Get("latitude")
		if !latOk {
			return Point{}, false
		}
		lonF, _ := toFloat(lon)
		latF, _ := toFloat(lat)
		p := Point{CRS: CRSGeographic2D, X: lonF, Y: latF}
		if h, ok := m.Get("height"); ok {
			hf, _ := toFloat(h)
			p.Z = hf
			p.CRS = CRSGeographic3D
		}
		return p, true
	}
	x, xOk := m.Get("x")
	y, yOk := m.Get("y")
	if !xOk || !yOk {
		return Point{}, false
	}
	xf, _ := toFloat(x)
	yf, _ := toFloat(y)
	p := Point{CRS: CRSCartesian2D, X: xf, Y: yf}
	if z, ok := m.Get("z"); ok {
		zf, _ := toFloat(z)
		p.Z = zf
		p.CRS = CRSCartesian3D
	}
	return p, true
}
