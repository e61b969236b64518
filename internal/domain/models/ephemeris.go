package models

// Body identifies a celestial body tracked by the ephemeris.
type Body string

const (
	Sun      Body = "sun"
	Moon     Body = "moon"
	Mercury  Body = "mercury"
	Venus    Body = "venus"
	Mars     Body = "mars"
	Jupiter  Body = "jupiter"
	Saturn   Body = "saturn"
	Uranus   Body = "uranus"
	Neptune  Body = "neptune"
	Pluto    Body = "pluto"
	TrueNode Body = "true_node"
)

// Bodies are the ten bodies used by the aspect, ingress and station sub-indices.
var Bodies = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// IsLuminary reports whether b is the Sun or the Moon.
func (b Body) IsLuminary() bool { return b == Sun || b == Moon }

// Position is a geocentric ecliptic position. Speed is in degrees per day.
type Position struct {
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	DailySpeed float64 `json:"daily_speed"`
}
