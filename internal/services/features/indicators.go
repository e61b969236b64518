package features

import (
	"errors"
	"math"

	"PillarCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData is returned when a series is shorter than the lookback.
var ErrInsufficientData = errors.New("insufficient data")

const (
	RSIPeriod      = 14
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignal     = 9
	BollingerLen   = 20
	BollingerWidth = 2.0
	SMALen         = 50
	VolumeLen      = 20
)

// Closes extracts close prices.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts traded volumes.
func Volumes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// RSI is Wilder's relative strength index of the last bar.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientData
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(period-1) + up) / float64(period)
		loss = (loss*float64(period-1) + down) / float64(period)
	}
	if loss == 0 {
		if gain == 0 {
			return 50, nil
		}
		return 100, nil
	}
	rs := gain / loss
	return 100 - 100/(1+rs), nil
}

// EMA returns the exponential moving average series seeded with the first value.
func EMA(series []float64, period int) []float64 {
	if len(series) == 0 || period <= 0 {
		return nil
	}
	k := 2 / float64(period+1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACD returns the last MACD line, signal line and histogram values.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist float64, err error) {
	if len(closes) < slow+signal {
		return 0, 0, 0, ErrInsufficientData
	}
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = f[i] - s[i]
	}
	sigSeries := EMA(macd, signal)
	n := len(closes) - 1
	return macd[n], sigSeries[n], macd[n] - sigSeries[n], nil
}

// BollingerPosition locates the last close inside the bands: 0 at the lower
// band, 1 at the upper band. Values outside the bands are not clipped.
func BollingerPosition(closes []float64, period int, width float64) (float64, error) {
	if len(closes) < period {
		return 0, ErrInsufficientData
	}
	window := closes[len(closes)-period:]
	mean, std := stat.PopMeanStdDev(window, nil)
	if std == 0 {
		return 0.5, nil
	}
	lower := mean - width*std
	upper := mean + width*std
	return (closes[len(closes)-1] - lower) / (upper - lower), nil
}

// SMARatio is last close divided by its simple moving average.
func SMARatio(closes []float64, period int) (float64, error) {
	if len(closes) < period {
		return 0, ErrInsufficientData
	}
	sma := stat.Mean(closes[len(closes)-period:], nil)
	if sma == 0 {
		return 0, ErrInsufficientData
	}
	return closes[len(closes)-1] / sma, nil
}

// VolumeRatio compares the last volume with the mean of the preceding period.
func VolumeRatio(volumes []float64, period int) (float64, error) {
	if len(volumes) < period+1 {
		return 0, ErrInsufficientData
	}
	prev := volumes[len(volumes)-period-1 : len(volumes)-1]
	mean := stat.Mean(prev, nil)
	if mean == 0 {
		return 0, ErrInsufficientData
	}
	return volumes[len(volumes)-1] / mean, nil
}

// Technical derives every technical metric that enough history allows.
// Metrics that cannot be computed are left out rather than guessed.
func Technical(candles []models.Candle) map[string]float64 {
	closes := Closes(candles)
	out := make(map[string]float64, 6)
	put := func(name string, v float64, err error) {
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[name] = v
		}
	}
	v, err := RSI(closes, RSIPeriod)
	put("rsi", v, err)
	line, _, hist, err := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	put("macd", line, err)
	put("macd_hist", hist, err)
	v, err = BollingerPosition(closes, BollingerLen, BollingerWidth)
	put("bb_position", v, err)
	v, err = SMARatio(closes, SMALen)
	put("sma_ratio", v, err)
	v, err = VolumeRatio(Volumes(candles), VolumeLen)
	put("volume_ratio", v, err)
	return out
}
