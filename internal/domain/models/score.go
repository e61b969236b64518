package models

import (
	"fmt"
	"strings"
)

// Pillar is one of the four top-level signal categories.
type Pillar string

const (
	PillarTechnical   Pillar = "technical"
	PillarSocial      Pillar = "social"
	PillarFundamental Pillar = "fundamental"
	PillarAstrology   Pillar = "astrology"
)

// Pillars lists every pillar in composite order.
var Pillars = [4]Pillar{PillarTechnical, PillarSocial, PillarFundamental, PillarAstrology}

// ParsePillar accepts a case-insensitive pillar name.
func ParsePillar(s string) (Pillar, error) {
	p := Pillar(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Pillars {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pillar %q", s)
}

// SubPillarScore is a weighted combination of normalized metrics.
type SubPillarScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PillarScore is a weighted combination of a pillar's sub-pillar scores.
type PillarScore struct {
	Pillar    Pillar           `json:"pillar"`
	Value     float64          `json:"value"`
	SubScores []SubPillarScore `json:"sub_scores,omitempty"`
}

// AstrologyKind names one of the five astrology sub-indices.
type AstrologyKind string

const (
	AstroAspect   AstrologyKind = "aspect"
	AstroIngress  AstrologyKind = "ingress"
	AstroMidpoint AstrologyKind = "midpoint"
	AstroStation  AstrologyKind = "station"
	AstroNode     AstrologyKind = "node"
)

// AstrologyKinds lists the sub-indices in their canonical order.
var AstrologyKinds = [5]AstrologyKind{AstroAspect, AstroIngress, AstroMidpoint, AstroStation, AstroNode}

// MetricName is the metric key under which the sub-index is ingested.
func (k AstrologyKind) MetricName() string { return "astro_" + string(k) }

// AstrologySubIndex carries both the raw accumulation and its 0..100 form.
type AstrologySubIndex struct {
	Kind       AstrologyKind `json:"kind"`
	Raw        float64       `json:"raw"`
	Normalized float64       `json:"normalized"`
}
