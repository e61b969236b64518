package scoring

import (
	"fmt"
	"math"
	"sort"

	"PillarCast/internal/domain/models"
)

// ScoreSubPillar computes Σ wᵢ·normᵢ. Missing metrics count as the neutral
// score so the effective weights never shift; their names are returned.
func ScoreSubPillar(def SubPillarDef, normalized map[string]float64) (models.SubPillarScore, []string) {
	var missing []string
	sum := 0.0
	for _, m := range def.metricNames() {
		v, ok := normalized[m]
		if !ok || math.IsNaN(v) {
			missing = append(missing, m)
			v = models.NeutralScore
		}
		sum += def.Metrics[m] * v
	}
	return models.SubPillarScore{Name: def.Name, Value: clamp(sum)}, missing
}

// ScorePillar combines the pillar's sub-pillar scores.
func ScorePillar(def PillarDef, normalized map[string]float64) (models.PillarScore, []string) {
	ps := models.PillarScore{Pillar: def.Pillar, SubScores: make([]models.SubPillarScore, 0, len(def.SubPillars))}
	var missing []string
	sum := 0.0
	for _, spd := range def.SubPillars {
		sub, miss := ScoreSubPillar(spd, normalized)
		ps.SubScores = append(ps.SubScores, sub)
		missing = append(missing, miss...)
		sum += spd.Weight * sub.Value
	}
	ps.Value = clamp(sum)
	return ps, missing
}

// clamp absorbs floating point drift; valid weights already keep sums in range.
func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Scorer turns a normalized metric map into the four pillar scores.
type Scorer struct {
	defs    map[models.Pillar]PillarDef
	pillars map[string]models.Pillar
}

// NewScorer validates defs; all four pillars must be defined.
func NewScorer(defs []PillarDef) (*Scorer, error) {
	s := &Scorer{defs: make(map[models.Pillar]PillarDef, len(defs)), pillars: make(map[string]models.Pillar)}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		s.defs[d.Pillar] = d
		for _, sp := range d.SubPillars {
			for m := range sp.Metrics {
				s.pillars[m] = d.Pillar
			}
		}
	}
	for _, p := range models.Pillars {
		if _, ok := s.defs[p]; !ok {
			return nil, fmt.Errorf("%w: pillar %s is not defined", models.ErrInvalidWeights, p)
		}
	}
	return s, nil
}

// Result is the outcome of scoring one cycle.
type Result struct {
	Pillars  [4]models.PillarScore
	Degraded []models.Pillar
	Missing  []string
}

// Score computes all pillars in composite order.
func (s *Scorer) Score(normalized map[string]float64) Result {
	var res Result
	for i, p := range models.Pillars {
		ps, missing := ScorePillar(s.defs[p], normalized)
		res.Pillars[i] = ps
		if len(missing) > 0 {
			res.Degraded = append(res.Degraded, p)
			res.Missing = append(res.Missing, missing...)
		}
	}
	return res
}

// RequiredMetrics lists every metric referenced by any sub-pillar.
func (s *Scorer) RequiredMetrics() []string {
	out := make([]string, 0, len(s.pillars))
	for m := range s.pillars {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// PillarOf returns the pillar that consumes metric.
func (s *Scorer) PillarOf(metric string) (models.Pillar, bool) {
	p, ok := s.pillars[metric]
	return p, ok
}
