package utils

import "math"

const (
	earthRadiusMi = 3958.7613
	metersPerMile = 1609.344
)

// HaversineMiles returns the great-circle distance between two points.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * earthRadiusMi * math.Asin(math.Min(1, math.Sqrt(a)))
}

// MetersToMiles converts a routing distance.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
