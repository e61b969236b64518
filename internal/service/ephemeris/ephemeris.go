// Package ephemeris is a low-precision analytic ephemeris. Planets use the
// Keplerian mean elements valid for 1800-2050; the Moon and its true node use
// the principal periodic terms of the lunar theory. Longitudes are geocentric,
// ecliptic and referred to the mean equinox of date, good to a fraction of a
// degree, which is enough for orb tests measured in whole degrees.
package ephemeris

import (
	"fmt"
	"math"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/domain/service"
)

const (
	j2000       = 2451545.0
	unixEpochJD = 2440587.5
	// general precession in longitude, degrees per Julian century
	precession = 1.396971
	// half-width of the central difference used for daily speed
	speedStep = 12 * time.Hour
)

type elements struct {
	a, e, i, l, peri, node float64
}

type orbit struct {
	base, rate elements
}

var orbits = map[models.Body]orbit{
	models.Mercury: {
		elements{0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593},
		elements{0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081},
	},
	models.Venus: {
		elements{0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255},
		elements{0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418},
	},
	earth: {
		elements{1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0},
		elements{0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0},
	},
	models.Mars: {
		elements{1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891},
		elements{0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343},
	},
	models.Jupiter: {
		elements{5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909},
		elements{-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106},
	},
	models.Saturn: {
		elements{9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448},
		elements{-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794},
	},
	models.Uranus: {
		elements{19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503},
		elements{-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589},
	},
	models.Neptune: {
		elements{30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574},
		elements{0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664},
	},
	models.Pluto: {
		elements{39.48211675, 0.24882730, 17.14001206, 238.92903833, 224.06891629, 110.30393684},
		elements{-0.00031596, 0.00005170, 0.00004818, 145.20780515, -0.04062942, -0.01183482},
	},
}

// earth is the Earth-Moon barycenter, used as the geocentric origin.
const earth models.Body = "earth"

// ValidFrom and ValidTo bound the span of the planetary elements.
var (
	ValidFrom = time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)
	ValidTo   = time.Date(2050, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Analytic implements service.EphemerisProvider without external data files.
type Analytic struct{}

var _ service.EphemerisProvider = Analytic{}

func New() Analytic { return Analytic{} }

// PositionAt returns the geocentric position of body; DailySpeed is the
// signed change in longitude per day, negative while retrograde.
func (Analytic) PositionAt(body models.Body, instant time.Time) (models.Position, error) {
	if instant.Before(ValidFrom) || instant.After(ValidTo) {
		return models.Position{}, fmt.Errorf("instant %s outside ephemeris range", instant.Format(time.RFC3339))
	}
	if !known(body) {
		return models.Position{}, fmt.Errorf("unknown body %q", body)
	}
	lon, lat := geocentric(body, centuries(instant))
	before, _ := geocentric(body, centuries(instant.Add(-speedStep)))
	after, _ := geocentric(body, centuries(instant.Add(speedStep)))
	return models.Position{
		Longitude:  lon,
		Latitude:   lat,
		DailySpeed: wrap180(after-before) * float64(24*time.Hour) / float64(2*speedStep),
	}, nil
}

func known(b models.Body) bool {
	if b == models.Sun || b == models.Moon || b == models.TrueNode {
		return true
	}
	_, ok := orbits[b]
	return ok
}

// centuries since J2000 in Julian centuries (TT approximated by UTC).
func centuries(t time.Time) float64 {
	jd := float64(t.UnixNano())/float64(24*time.Hour) + unixEpochJD
	return (jd - j2000) / 36525
}

func geocentric(body models.Body, T float64) (lon, lat float64) {
	switch body {
	case models.Moon:
		return moon(T)
	case models.TrueNode:
		return trueNode(T), 0
	}
	ex, ey, ez := heliocentric(orbits[earth], T)
	var x, y, z float64
	if body == models.Sun {
		x, y, z = -ex, -ey, -ez
	} else {
		px, py, pz := heliocentric(orbits[body], T)
		x, y, z = px-ex, py-ey, pz-ez
	}
	lon = norm360(deg(math.Atan2(y, x)) + precession*T)
	lat = deg(math.Atan2(z, math.Hypot(x, y)))
	return lon, lat
}

// heliocentric returns J2000 ecliptic coordinates in AU.
func heliocentric(o orbit, T float64) (x, y, z float64) {
	a := o.base.a + o.rate.a*T
	e := o.base.e + o.rate.e*T
	inc := rad(o.base.i + o.rate.i*T)
	l := o.base.l + o.rate.l*T
	peri := o.base.peri + o.rate.peri*T
	node := o.base.node + o.rate.node*T

	argPeri := rad(peri - node)
	m := rad(wrap180(l - peri))
	E := kepler(m, e)

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(argPeri), math.Sin(argPeri)
	cn, sn := math.Cos(rad(node)), math.Sin(rad(node))
	ci, si := math.Cos(inc), math.Sin(inc)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = sw*si*xp + cw*si*yp
	return x, y, z
}

// kepler solves E - e·sin(E) = M by Newton iteration.
func kepler(m, e float64) float64 {
	E := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		dE := (E - e*math.Sin(E) - m) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

type lunarArgs struct {
	lp, d, m, mp, f float64
}

func fundamentals(T float64) lunarArgs {
	return lunarArgs{
		lp: 218.3164477 + 481267.88123421*T,
		d:  rad(297.8501921 + 445267.1114034*T),
		m:  rad(357.5291092 + 35999.0502909*T),
		mp: rad(134.9633964 + 477198.8675055*T),
		f:  rad(93.2720950 + 483202.0175233*T),
	}
}

func moon(T float64) (lon, lat float64) {
	a := fundamentals(T)
	lon = a.lp +
		6.288774*math.Sin(a.mp) +
		1.274027*math.Sin(2*a.d-a.mp) +
		0.658314*math.Sin(2*a.d) +
		0.213618*math.Sin(2*a.mp) -
		0.185116*math.Sin(a.m) -
		0.114332*math.Sin(2*a.f) +
		0.058793*math.Sin(2*a.d-2*a.mp) +
		0.057066*math.Sin(2*a.d-a.m-a.mp) +
		0.053322*math.Sin(2*a.d+a.mp) +
		0.045758*math.Sin(2*a.d-a.m) -
		0.040923*math.Sin(a.m-a.mp) -
		0.034720*math.Sin(a.d) -
		0.030383*math.Sin(a.m+a.mp)
	lat = 5.128122*math.Sin(a.f) +
		0.280602*math.Sin(a.mp+a.f) +
		0.277693*math.Sin(a.mp-a.f) +
		0.173237*math.Sin(2*a.d-a.f)
	return norm360(lon), lat
}

func trueNode(T float64) float64 {
	a := fundamentals(T)
	mean := 125.0445479 - 1934.1362891*T
	return norm360(mean -
		1.4979*math.Sin(2*(a.d-a.f)) -
		0.1500*math.Sin(a.m) -
		0.1226*math.Sin(2*a.d) +
		0.1176*math.Sin(2*a.f) +
		0.0801*math.Sin(2*(a.mp-a.f)))
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

func norm360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func wrap180(d float64) float64 {
	d = norm360(d)
	if d > 180 {
		d -= 360
	}
	return d
}
