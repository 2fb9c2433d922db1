package weather

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultSnowRatio is centimetres of snow per millimetre of water equivalent.
	DefaultSnowRatio = 1.5

	// SmoothingWindow is the centered moving-average window applied to hourly depth.
	SmoothingWindow = 3

	metersToCentimeters = 100.0
)

// Upstream field names recorded in NormalizedDay.Missing.
const (
	FieldSnowfall    = "snowfall_sum"
	FieldSnowDepth   = "snow_depth"
	FieldTemperature = "temperature_2m_max"
	FieldWindSpeed   = "windspeed_10m_max"
	FieldDate        = "time"
)

// Normalizer converts raw upstream samples into NormalizedDays.
type Normalizer struct {
	snowRatio float64
}

// NewNormalizer returns a Normalizer using ratio cm of snow per mm of water.
// A non-positive ratio falls back to DefaultSnowRatio.
func NewNormalizer(ratio float64) Normalizer {
	if ratio <= 0 {
		ratio = DefaultSnowRatio
	}
	return Normalizer{snowRatio: ratio}
}

// SnowRatio returns the conversion ratio in use.
func (n Normalizer) SnowRatio() float64 {
	return n.snowRatio
}

// NormalizeDays normalizes consecutive days. The daily depth of the first day seeds
// the accumulated prior depth; each later day accumulates onto the previous result
// when no hourly series is available.
func (n Normalizer) NormalizeDays(samples []RawForecastSample) []NormalizedDay {
	out := make([]NormalizedDay, 0, len(samples))
	var prior *float64
	if len(samples) > 0 && samples[0].SnowDepthM != nil {
		cm := *samples[0].SnowDepthM * metersToCentimeters
		prior = &cm
	}
	for _, s := range samples {
		day := n.Normalize(s, prior)
		depth := day.SnowDepthCm
		prior = &depth
		out = append(out, day)
	}
	return out
}

// Normalize produces a NormalizedDay from one raw sample. priorDepthCm is the snow
// already on the ground and may be nil.
func (n Normalizer) Normalize(s RawForecastSample, priorDepthCm *float64) NormalizedDay {
	var missing []string
	value := func(p *float64, field string) float64 {
		if p == nil || math.IsNaN(*p) {
			missing = append(missing, field)
			return 0
		}
		return *p
	}

	var fresh float64
	if s.SnowfallCm != nil && !math.IsNaN(*s.SnowfallCm) {
		fresh = clampNonNegative(*s.SnowfallCm)
	} else {
		fresh = clampNonNegative(value(s.SnowfallSumMM, FieldSnowfall) * n.snowRatio)
	}
	temp := value(s.TemperatureMaxC, FieldTemperature)
	wind := clampNonNegative(value(s.WindSpeedMaxKmh, FieldWindSpeed))

	var depth float64
	if hourly := presentValues(s.HourlySnowDepthM); len(hourly) > 0 {
		depth = floats.Max(Smooth(hourly)) * metersToCentimeters
	} else if priorDepthCm != nil {
		depth = *priorDepthCm + fresh
	} else {
		missing = append(missing, FieldSnowDepth)
		depth = fresh
	}

	weekday, ok := weekdayOf(s.Date, s.Location)
	if !ok {
		missing = append(missing, FieldDate)
	}

	return NormalizedDay{
		Date:         s.Date,
		SnowDepthCm:  round1(clampNonNegative(depth)),
		FreshSnowCm:  round1(fresh),
		TemperatureC: round1(temp),
		WindSpeedKmh: round1(wind),
		DayOfWeek:    weekday,
		Missing:      missing,
	}
}

// Smooth applies a centered moving average of SmoothingWindow points. At the series
// bounds the window shrinks to the neighbours that exist.
func Smooth(series []float64) []float64 {
	n := len(series)
	out := make([]float64, n)
	half := SmoothingWindow / 2
	for i := range series {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		out[i] = stat.Mean(series[lo:hi], nil)
	}
	return out
}

// presentValues drops null points; a gap in the hourly series is not a zero reading.
func presentValues(series []*float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, p := range series {
		if p != nil && !math.IsNaN(*p) {
			out = append(out, *p)
		}
	}
	return out
}

func weekdayOf(date string, loc *time.Location) (Weekday, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return UnknownWeekday, false
	}
	return Weekday(t.Weekday()), true
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
