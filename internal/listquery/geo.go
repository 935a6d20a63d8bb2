package listquery

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean earth radius used by Haversine and the SQL
// distance expression.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p lies within the coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b Point) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceExpr renders the haversine distance in km between the row's
// latExpr/lonExpr and a bound reference point. The ASIN argument is clamped
// so identical points yield exactly 0.
func (q Query) DistanceExpr(latExpr, lonExpr string) string {
	inner := fmt.Sprintf(
		"SQRT(POWER(SIN(RADIANS(%[1]s - ?) / 2), 2) + COS(RADIANS(?)) * COS(RADIANS(%[1]s)) * POWER(SIN(RADIANS(%[2]s - ?) / 2), 2))",
		latExpr, lonExpr,
	)
	return fmt.Sprintf("(2 * %v * ASIN(%s))", EarthRadiusKm, q.dialect.Least("1", inner))
}

// WithDistance adds a computed "distance" column between the row and ref.
// Filter on it with WithinRadius after Wrap.
func (q Query) WithDistance(latExpr, lonExpr string, ref Point) (Query, error) {
	if !ref.Valid() {
		return q, fmt.Errorf("%w: reference point %v", ErrInvalidFilterValue, ref)
	}
	return q.Computed("distance", q.DistanceExpr(latExpr, lonExpr), ref.Lat, ref.Lat, ref.Lon), nil
}

// WithinRadius keeps rows whose distance column is at most radiusKm. The
// bound is inclusive so a row at the reference point always matches.
func (q Query) WithinRadius(radiusKm float64) (Query, error) {
	if radiusKm < 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return q, fmt.Errorf("%w: radius %v", ErrInvalidFilterValue, radiusKm)
	}
	col, ok := q.schema.Columns["distance"]
	if !ok {
		return q, fmt.Errorf("%w: distance is not a column of %s", ErrUnresolvedJoinReference, q.schema.Table)
	}
	return q.Where(col.Expr+" <= ?", radiusKm), nil
}

// Dedupe adds a dup_rank column numbering rows within each partition.
// After Wrap, Where("dup_rank = 1") keeps one row per partition.
func (q Query) Dedupe(partitionBy, orderBy string) Query {
	return q.Computed("dup_rank", fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s)", partitionBy, orderBy))
}
