package astrology

import "math"

// Aspect is a canonical angular relationship with its orb and weight.
type Aspect struct {
	Name   string
	Angle  float64
	Orb    float64
	Weight float64
}

// Aspects are the six major aspects scored by the aspect and midpoint indices.
var Aspects = []Aspect{
	{Name: "conjunction", Angle: 0, Orb: 8, Weight: 1.5},
	{Name: "sextile", Angle: 60, Orb: 4, Weight: 1.2},
	{Name: "square", Angle: 90, Orb: 6, Weight: 2.0},
	{Name: "trine", Angle: 120, Orb: 4, Weight: 1.5},
	{Name: "quincunx", Angle: 150, Orb: 3, Weight: 0.8},
	{Name: "opposition", Angle: 180, Orb: 8, Weight: 2.5},
}

// NormalizeLongitude folds lon into [0, 360).
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// Separation is the smaller arc between two longitudes, in [0, 180].
func Separation(a, b float64) float64 {
	d := math.Abs(NormalizeLongitude(a) - NormalizeLongitude(b))
	return math.Min(d, 360-d)
}

// Strength is (orb - |d - angle|) / orb when within orb, else 0.
func Strength(d, angle, orb float64) float64 {
	off := math.Abs(d - angle)
	if off > orb {
		return 0
	}
	return (orb - off) / orb
}

// AspectScore accrues strength·weight·scale over every aspect matched by separation d.
func AspectScore(d, scale float64) float64 {
	total := 0.0
	for _, a := range Aspects {
		total += Strength(d, a.Angle, a.Orb) * a.Weight * scale
	}
	return total
}

// SignIndex is the zodiac sign of lon, 0 = Aries ... 11 = Pisces.
func SignIndex(lon float64) int {
	return int(NormalizeLongitude(lon)/30) % 12
}
