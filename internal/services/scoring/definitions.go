package scoring

import (
	"fmt"
	"math"
	"sort"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/services/astrology"
	"PillarCast/pkg/config"
)

const weightTolerance = 1e-6

// SubPillarDef is a named weighted subset of normalized metrics.
type SubPillarDef struct {
	Name    string
	Weight  float64 // weight of this sub-pillar inside its pillar
	Metrics map[string]float64
}

// PillarDef lists the sub-pillars of one pillar.
type PillarDef struct {
	Pillar     models.Pillar
	SubPillars []SubPillarDef
}

func checkWeights(what string, weights []float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s has weight %v", models.ErrInvalidWeights, what, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: %s weights sum to %.6f", models.ErrInvalidWeights, what, sum)
	}
	return nil
}

// Validate checks that every weight vector is non-negative and sums to 1.
func (d SubPillarDef) Validate() error {
	if len(d.Metrics) == 0 {
		return fmt.Errorf("%w: sub-pillar %s has no metrics", models.ErrInvalidWeights, d.Name)
	}
	ws := make([]float64, 0, len(d.Metrics))
	for _, w := range d.Metrics {
		ws = append(ws, w)
	}
	return checkWeights("sub-pillar "+d.Name, ws)
}

func (d PillarDef) Validate() error {
	if len(d.SubPillars) == 0 {
		return fmt.Errorf("%w: pillar %s has no sub-pillars", models.ErrInvalidWeights, d.Pillar)
	}
	ws := make([]float64, 0, len(d.SubPillars))
	for _, sp := range d.SubPillars {
		if err := sp.Validate(); err != nil {
			return err
		}
		ws = append(ws, sp.Weight)
	}
	return checkWeights("pillar "+string(d.Pillar), ws)
}

// metricNames returns the metric keys in a stable order.
func (d SubPillarDef) metricNames() []string {
	names := make([]string, 0, len(d.Metrics))
	for m := range d.Metrics {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// DefaultDefinitions is the built-in metric selection.
func DefaultDefinitions() []PillarDef {
	astro := make([]SubPillarDef, 0, len(models.AstrologyKinds))
	for _, k := range models.AstrologyKinds {
		astro = append(astro, SubPillarDef{
			Name:    string(k),
			Weight:  astrology.Weights[k],
			Metrics: map[string]float64{k.MetricName(): 1},
		})
	}
	return []PillarDef{
		{Pillar: models.PillarTechnical, SubPillars: []SubPillarDef{
			{Name: "momentum", Weight: 0.40, Metrics: map[string]float64{"rsi": 0.6, "macd_hist": 0.4}},
			{Name: "trend", Weight: 0.35, Metrics: map[string]float64{"sma_ratio": 0.5, "macd": 0.5}},
			{Name: "volatility", Weight: 0.25, Metrics: map[string]float64{"bb_position": 0.7, "volume_ratio": 0.3}},
		}},
		{Pillar: models.PillarSocial, SubPillars: []SubPillarDef{
			{Name: "sentiment", Weight: 0.60, Metrics: map[string]float64{"sentiment_up_pct": 0.6, "fear_greed": 0.4}},
			{Name: "community", Weight: 0.40, Metrics: map[string]float64{
				"reddit_active_accounts": 0.5, "reddit_subscribers": 0.3, "watchlist_users": 0.2,
			}},
		}},
		{Pillar: models.PillarFundamental, SubPillars: []SubPillarDef{
			{Name: "valuation", Weight: 0.50, Metrics: map[string]float64{"market_cap": 0.5, "volume_to_mcap": 0.5}},
			{Name: "activity", Weight: 0.50, Metrics: map[string]float64{
				"total_volume": 0.4, "price_change_7d": 0.3, "price_change_30d": 0.3,
			}},
		}},
		{Pillar: models.PillarAstrology, SubPillars: astro},
	}
}

// FromConfig converts YAML pillar definitions. Pillars missing from cfg
// keep their default definition.
func FromConfig(cfg map[string]config.PillarConfig) ([]PillarDef, error) {
	defs := DefaultDefinitions()
	for name, pc := range cfg {
		p, err := models.ParsePillar(name)
		if err != nil {
			return nil, err
		}
		def := PillarDef{Pillar: p}
		for _, sp := range pc.SubPillars {
			metrics := make(map[string]float64, len(sp.Metrics))
			for m, w := range sp.Metrics {
				metrics[m] = w
			}
			def.SubPillars = append(def.SubPillars, SubPillarDef{Name: sp.Name, Weight: sp.Weight, Metrics: metrics})
		}
		for i := range defs {
			if defs[i].Pillar == p {
				defs[i] = def
			}
		}
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}
