package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/skisignal/internal/weather"
)

func newDefaultEngine() *Engine {
	return NewEngine(DefaultPolicy())
}

func day(snow, fresh, temp, wind float64, dow time.Weekday) weather.NormalizedDay {
	return weather.NormalizedDay{
		SnowDepthCm:  snow,
		FreshSnowCm:  fresh,
		TemperatureC: temp,
		WindSpeedKmh: wind,
		DayOfWeek:    weather.Weekday(dow),
	}
}

func TestScore_Scenarios(t *testing.T) {
	e := newDefaultEngine()

	t.Run("bare warm monday is SKIP", func(t *testing.T) {
		res := e.Score(day(0, 0, 10, 0, time.Monday))
		assert.Equal(t, weather.VerdictSkip, res.Verdict)
		assert.Equal(t, -40.0, res.Score)
		assert.Equal(t, []string{"thin cover", "slushy"}, res.Reasons)
		assert.Equal(t, 0.0, res.CrowdScore)
	})

	t.Run("deep powder saturday is GO with weekend crowd", func(t *testing.T) {
		res := e.Score(day(200, 70, -10, 10, time.Saturday))
		assert.Equal(t, weather.VerdictGo, res.Verdict)
		assert.Equal(t, 100.0, res.Score)
		assert.Equal(t, []string{"deep base", "deep powder"}, res.Reasons)
		assert.Equal(t, 60.0, res.CrowdScore)
		assert.False(t, res.LiftsClosed)
		require.NotNil(t, res.SlopeCondition)
		assert.Equal(t, 100, *res.SlopeCondition)
	})

	t.Run("storm day", func(t *testing.T) {
		res := e.Score(day(60, 35, -5, 45, time.Tuesday))
		// 20 base + 45 powder + 10 cold smoke - 15 windy + 10 storm
		assert.Equal(t, 70.0, res.Score)
		assert.True(t, res.Storm)
		assert.Contains(t, res.Reasons, "storm day")
		assert.Equal(t, "storm day", res.Reasons[len(res.Reasons)-1])
	})

	t.Run("cold smoke band bounds are inclusive", func(t *testing.T) {
		for _, temp := range []float64{-8, -5, -2} {
			res := e.Score(day(0, 0, temp, 0, time.Monday))
			assert.Contains(t, res.Reasons, "cold smoke", "temp %v", temp)
		}
		res := e.Score(day(0, 0, -1.9, 0, time.Monday))
		assert.NotContains(t, res.Reasons, "cold smoke")
	})
}

func TestScore_LiftsClosedForcesSkip(t *testing.T) {
	e := newDefaultEngine()
	p := e.Policy()

	for _, wind := range []float64{80.1, 90, 120, 400} {
		for _, d := range []weather.NormalizedDay{
			day(300, 100, -5, wind, time.Saturday),
			day(200, 70, -10, wind, time.Wednesday),
			day(0, 0, 10, wind, time.Monday),
		} {
			res := e.Score(d)
			assert.Equal(t, weather.VerdictSkip, res.Verdict, "wind %v", wind)
			assert.True(t, res.LiftsClosed)
			assert.Less(t, res.Score, p.MehFloor)
			assert.Contains(t, res.Reasons, "lifts closed")
		}
	}

	res := e.Score(day(200, 70, -10, 80, time.Saturday))
	assert.False(t, res.LiftsClosed, "threshold is exclusive")
}

func TestScore_Deterministic(t *testing.T) {
	e := newDefaultEngine()
	inputs := []weather.NormalizedDay{
		day(0, 0, 10, 0, time.Monday),
		day(120, 22, -3, 30, time.Sunday),
		day(55.5, 61, 1, 61, time.Friday),
	}
	for _, in := range inputs {
		first := e.Score(in)
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, e.Score(in))
		}
	}
}

func TestScore_MonotonicInFreshSnow(t *testing.T) {
	e := newDefaultEngine()
	for _, base := range []weather.NormalizedDay{
		day(0, 0, 10, 0, time.Monday),
		day(120, 0, -4, 30, time.Saturday),
		day(80, 0, 0, 55, time.Thursday),
		day(200, 0, -10, 90, time.Sunday),
	} {
		prev := math.Inf(-1)
		for fresh := 0.0; fresh <= 150; fresh += 0.5 {
			d := base
			d.FreshSnowCm = fresh
			s := e.Score(d).Score
			require.GreaterOrEqual(t, s, prev, "fresh %v base %+v", fresh, base)
			prev = s
		}
	}
}

func TestScore_ClampsNegativeInputs(t *testing.T) {
	e := newDefaultEngine()
	neg := e.Score(day(-50, -10, -5, -20, time.Monday))
	zero := e.Score(day(0, 0, -5, 0, time.Monday))
	assert.Equal(t, zero, neg)
}

func TestScore_SlopeCondition(t *testing.T) {
	e := newDefaultEngine()

	tests := []struct {
		name string
		in   weather.NormalizedDay
		want int
	}{
		{"no snow", day(0, 0, -5, 0, time.Monday), 0},
		{"half cap", day(75, 0, -5, 0, time.Monday), 50},
		{"warm penalty", day(150, 0, 5, 0, time.Monday), 80},
		{"wind penalty", day(150, 0, -5, 50, time.Monday), 80},
		{"clamped low", day(10, 0, 20, 90, time.Monday), 0},
		{"clamped high", day(400, 0, -20, 0, time.Monday), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Score(tt.in)
			require.NotNil(t, res.SlopeCondition)
			assert.Equal(t, tt.want, *res.SlopeCondition)
		})
	}

	p := DefaultPolicy()
	p.SlopeConditionEnabled = false
	assert.Nil(t, NewEngine(p).Score(day(100, 0, 0, 0, time.Monday)).SlopeCondition)
}

func TestVerdict_ThresholdsExhaustive(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		score float64
		want  weather.Verdict
	}{
		{math.Inf(-1), weather.VerdictSkip},
		{-1000, weather.VerdictSkip},
		{19.999, weather.VerdictSkip},
		{20, weather.VerdictMeh},
		{49.999, weather.VerdictMeh},
		{50, weather.VerdictGoStorm},
		{69.999, weather.VerdictGoStorm},
		{70, weather.VerdictGo},
		{1e9, weather.VerdictGo},
		{math.Inf(1), weather.VerdictGo},
		{math.NaN(), weather.VerdictSkip},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Verdict(tt.score), "score %v", tt.score)
	}

	// Verdict rank never decreases as the score rises.
	prev := -1
	for s := -200.0; s <= 200; s += 0.25 {
		r := p.Verdict(s).Rank()
		require.GreaterOrEqual(t, r, prev, "score %v", s)
		prev = r
	}
}

func TestScore_UnknownWeekdayEarnsNoWeekendCrowd(t *testing.T) {
	e := newDefaultEngine()
	d := weather.NewNormalizer(weather.DefaultSnowRatio).Normalize(weather.RawForecastSample{Date: ""}, nil)
	require.Contains(t, d.Missing, weather.FieldDate)

	res := e.Score(d)
	assert.Equal(t, 0.0, res.CrowdScore)

	d.FreshSnowCm = 20
	assert.Equal(t, 20.0, e.Score(d).CrowdScore, "powder crowd still applies")
}

func TestScore_StormTierWithoutStorm(t *testing.T) {
	res := newDefaultEngine().Score(day(120, 20, 0, 5, time.Wednesday))
	assert.Equal(t, 60.0, res.Score)
	assert.Equal(t, weather.VerdictGoStorm, res.Verdict, "50..69 is a score tier")
	assert.False(t, res.Storm)
	assert.Equal(t, []string{"solid base", "fresh snow"}, res.Reasons)
}
