package astrology

import "PillarCast/internal/domain/models"

// Zodiac signs by index.
const (
	Aries = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

type ingressKey struct {
	body models.Body
	sign int
}

// IngressTable weighs a body entering a sign. Unmapped ingresses weigh 0.
type IngressTable map[ingressKey]float64

// Weight returns the weight of body entering sign.
func (t IngressTable) Weight(body models.Body, sign int) float64 {
	return t[ingressKey{body: body, sign: sign}]
}

// Set assigns a weight to body entering sign.
func (t IngressTable) Set(body models.Body, sign int, w float64) {
	t[ingressKey{body: body, sign: sign}] = w
}

// DefaultIngressTable holds the historically bullish (positive) and bearish
// (negative) ingresses.
func DefaultIngressTable() IngressTable {
	t := IngressTable{}
	t.Set(models.Jupiter, Taurus, 2.0)
	t.Set(models.Jupiter, Leo, 1.5)
	t.Set(models.Jupiter, Sagittarius, 1.5)
	t.Set(models.Jupiter, Pisces, 1.0)
	t.Set(models.Jupiter, Capricorn, -1.0)

	t.Set(models.Saturn, Capricorn, -2.0)
	t.Set(models.Saturn, Aries, -1.5)
	t.Set(models.Saturn, Aquarius, -1.0)
	t.Set(models.Saturn, Libra, 1.0)

	t.Set(models.Uranus, Taurus, -1.5)
	t.Set(models.Uranus, Gemini, 1.0)
	t.Set(models.Neptune, Aries, -1.0)
	t.Set(models.Pluto, Aquarius, -1.0)

	t.Set(models.Mars, Aries, 0.8)
	t.Set(models.Mars, Capricorn, 0.5)
	t.Set(models.Mars, Cancer, -0.8)
	t.Set(models.Mars, Libra, -0.5)

	t.Set(models.Venus, Taurus, 1.0)
	t.Set(models.Venus, Libra, 0.8)
	t.Set(models.Venus, Virgo, -0.5)
	t.Set(models.Venus, Scorpio, -0.5)

	t.Set(models.Mercury, Gemini, 0.5)
	t.Set(models.Mercury, Virgo, 0.5)
	t.Set(models.Mercury, Pisces, -0.5)

	t.Set(models.Sun, Aries, 0.5)
	t.Set(models.Sun, Leo, 0.5)
	t.Set(models.Sun, Libra, -0.3)

	t.Set(models.Moon, Taurus, 0.3)
	t.Set(models.Moon, Scorpio, -0.3)
	return t
}
