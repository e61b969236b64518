// Package astrology computes the financial astrology pillar from body positions.
//
// Five sub-indices are derived from geocentric ecliptic longitudes and daily
// speeds: aspect, ingress, midpoint, station and node. Each is mapped onto
// 0..100 and blended with fixed weights into the pillar value.
package astrology

import (
	"fmt"
	"math"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/domain/service"
)

const (
	aspectCeiling   = 30.0
	midpointCeiling = 20.0
	nodeCeiling     = 8.0

	midpointWeightScale = 0.8
	stationThreshold    = 0.1 // degrees per day
	nodeOrb             = 6.0
	nodeWeight          = 1.2
	ingressLookback     = 24 * time.Hour
)

var nodeAngles = []float64{0, 90, 120, 180}

// Weights is the fixed blend of the sub-indices into the pillar score.
var Weights = map[models.AstrologyKind]float64{
	models.AstroAspect:   0.35,
	models.AstroIngress:  0.20,
	models.AstroMidpoint: 0.20,
	models.AstroStation:  0.15,
	models.AstroNode:     0.10,
}

// Chart is a set of body positions at one instant.
type Chart map[models.Body]models.Position

// AspectRaw sums aspect contributions over every unordered pair of bodies.
func AspectRaw(c Chart) float64 {
	total := 0.0
	for i := 0; i < len(models.Bodies); i++ {
		a, ok := c[models.Bodies[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(models.Bodies); j++ {
			b, ok := c[models.Bodies[j]]
			if !ok {
				continue
			}
			total += AspectScore(Separation(a.Longitude, b.Longitude), 1)
		}
	}
	return total
}

// IngressRaw sums the table weight of every body whose sign changed between prev and now.
func IngressRaw(now, prev Chart, table IngressTable) float64 {
	total := 0.0
	for _, b := range models.Bodies {
		cur, ok1 := now[b]
		old, ok2 := prev[b]
		if !ok1 || !ok2 {
			continue
		}
		sign := SignIndex(cur.Longitude)
		if sign == SignIndex(old.Longitude) {
			continue
		}
		total += table.Weight(b, sign)
	}
	return total
}

// MidpointRaw scores aspects of the non-luminaries to the Sun/Moon midpoint.
func MidpointRaw(c Chart) float64 {
	sun, ok1 := c[models.Sun]
	moon, ok2 := c[models.Moon]
	if !ok1 || !ok2 {
		return 0
	}
	mid := (NormalizeLongitude(sun.Longitude) + NormalizeLongitude(moon.Longitude)) / 2
	total := 0.0
	for _, b := range models.Bodies {
		if b.IsLuminary() {
			continue
		}
		if p, ok := c[b]; ok {
			total += AspectScore(Separation(p.Longitude, mid), midpointWeightScale)
		}
	}
	return total
}

// StationRaw accrues (0.1 - |speed|)·10 for every body moving slower than 0.1°/day.
func StationRaw(c Chart) float64 {
	total := 0.0
	for _, b := range models.Bodies {
		p, ok := c[b]
		if !ok {
			continue
		}
		if s := math.Abs(p.DailySpeed); s < stationThreshold {
			total += (stationThreshold - s) * 10
		}
	}
	return total
}

// NodeRaw scores each non-luminary against the nearer of the true node and its antipode.
func NodeRaw(c Chart) float64 {
	node, ok := c[models.TrueNode]
	if !ok {
		return 0
	}
	south := NormalizeLongitude(node.Longitude + 180)
	total := 0.0
	for _, b := range models.Bodies {
		if b.IsLuminary() {
			continue
		}
		p, ok := c[b]
		if !ok {
			continue
		}
		d := math.Min(Separation(p.Longitude, node.Longitude), Separation(p.Longitude, south))
		for _, angle := range nodeAngles {
			if off := math.Abs(d - angle); off <= nodeOrb {
				total += (nodeOrb - off) / nodeOrb * nodeWeight
			}
		}
	}
	return total
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Normalize maps a raw sub-index accumulation onto 0..100.
// Ingress is signed, so it is centered on the neutral score.
func Normalize(kind models.AstrologyKind, raw float64) float64 {
	switch kind {
	case models.AstroAspect:
		return clamp100(raw / aspectCeiling * 100)
	case models.AstroMidpoint:
		return clamp100(raw / midpointCeiling * 100)
	case models.AstroNode:
		return clamp100(raw / nodeCeiling * 100)
	case models.AstroStation:
		return clamp100(raw * 10)
	case models.AstroIngress:
		return clamp100(models.NeutralScore + raw*25)
	}
	return models.NeutralScore
}

// Composite blends normalized sub-indices with the fixed weights.
func Composite(subs [5]models.AstrologySubIndex) float64 {
	total := 0.0
	for _, s := range subs {
		total += Weights[s.Kind] * s.Normalized
	}
	return clamp100(total)
}

// Reading is the astrology evaluation at one instant.
type Reading struct {
	Instant    time.Time                   `json:"instant"`
	SubIndices [5]models.AstrologySubIndex `json:"sub_indices"`
	Composite  float64                     `json:"composite"`
}

// Value returns the normalized value of kind.
func (r Reading) Value(kind models.AstrologyKind) float64 {
	for _, s := range r.SubIndices {
		if s.Kind == kind {
			return s.Normalized
		}
	}
	return models.NeutralScore
}

// Index evaluates the sub-indices through an ephemeris provider.
type Index struct {
	eph     service.EphemerisProvider
	ingress IngressTable
}

func NewIndex(eph service.EphemerisProvider) *Index {
	return &Index{eph: eph, ingress: DefaultIngressTable()}
}

// ChartAt looks up every body plus the true node at instant.
func (x *Index) ChartAt(instant time.Time) (Chart, error) {
	c := make(Chart, len(models.Bodies)+1)
	for _, b := range append(models.Bodies[:len(models.Bodies):len(models.Bodies)], models.TrueNode) {
		p, err := x.eph.PositionAt(b, instant)
		if err != nil {
			return nil, fmt.Errorf("position of %s: %w", b, err)
		}
		c[b] = p
	}
	return c, nil
}

// Evaluate computes all five sub-indices at instant.
func (x *Index) Evaluate(instant time.Time) (Reading, error) {
	now, err := x.ChartAt(instant)
	if err != nil {
		return Reading{}, err
	}
	prev, err := x.ChartAt(instant.Add(-ingressLookback))
	if err != nil {
		return Reading{}, err
	}
	raw := map[models.AstrologyKind]float64{
		models.AstroAspect:   AspectRaw(now),
		models.AstroIngress:  IngressRaw(now, prev, x.ingress),
		models.AstroMidpoint: MidpointRaw(now),
		models.AstroStation:  StationRaw(now),
		models.AstroNode:     NodeRaw(now),
	}
	r := Reading{Instant: instant}
	for i, k := range models.AstrologyKinds {
		r.SubIndices[i] = models.AstrologySubIndex{Kind: k, Raw: raw[k], Normalized: Normalize(k, raw[k])}
	}
	r.Composite = Composite(r.SubIndices)
	return r, nil
}
