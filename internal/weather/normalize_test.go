package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestSmooth(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", []float64{}, []float64{}},
		{"single point", []float64{2}, []float64{2}},
		{"two points", []float64{1, 3}, []float64{2, 2}},
		{"constant", []float64{1.5, 1.5, 1.5, 1.5, 1.5}, []float64{1.5, 1.5, 1.5, 1.5, 1.5}},
		{"spike is damped", []float64{0, 0, 3, 0, 0}, []float64{0, 1, 1, 1, 0}},
		{"ramp edges shrink", []float64{0, 3, 6, 9}, []float64{1.5, 3, 6, 7.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Smooth(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestSmooth_ConstantSeriesIsIdentity(t *testing.T) {
	for _, v := range []float64{0, 0.01, 1.23, 250} {
		for n := 1; n <= 24; n++ {
			in := make([]float64, n)
			for i := range in {
				in[i] = v
			}
			got := Smooth(in)
			for i := range got {
				require.InDelta(t, v, got[i], 1e-12, "value %v length %d", v, n)
			}
		}
	}
}

func TestNormalize_HourlyDepth(t *testing.T) {
	n := NewNormalizer(DefaultSnowRatio)
	day := n.Normalize(RawForecastSample{
		Date:             "2026-01-17",
		SnowfallSumMM:    f64(10),
		SnowDepthM:       f64(0.5),
		TemperatureMaxC:  f64(-4.44),
		WindSpeedMaxKmh:  f64(22.26),
		HourlySnowDepthM: []*float64{f64(1.0), f64(1.3), nil, f64(1.6)},
		Location:         time.UTC,
	}, nil)

	// Null point dropped, series [1.0, 1.3, 1.6] smooths to [1.15, 1.3, 1.45].
	assert.Equal(t, 145.0, day.SnowDepthCm)
	assert.Equal(t, 15.0, day.FreshSnowCm)
	assert.Equal(t, -4.4, day.TemperatureC)
	assert.Equal(t, 22.3, day.WindSpeedKmh)
	assert.Equal(t, Weekday(time.Saturday), day.DayOfWeek)
	assert.Empty(t, day.Missing)
}

func TestNormalize_SnowRatio(t *testing.T) {
	raw := RawForecastSample{Date: "2026-01-17", SnowfallSumMM: f64(10)}

	assert.Equal(t, 15.0, NewNormalizer(0).Normalize(raw, nil).FreshSnowCm, "non-positive ratio uses default")
	assert.Equal(t, 10.0, NewNormalizer(1).Normalize(raw, nil).FreshSnowCm)
	assert.Equal(t, 12.0, NewNormalizer(1.2).Normalize(raw, nil).FreshSnowCm)
	assert.Equal(t, 1.2, NewNormalizer(1.2).SnowRatio())
}

func TestNormalize_MissingFieldsDefaultToZero(t *testing.T) {
	day := NewNormalizer(DefaultSnowRatio).Normalize(RawForecastSample{Date: "2026-01-19"}, nil)

	assert.Equal(t, 0.0, day.SnowDepthCm)
	assert.Equal(t, 0.0, day.FreshSnowCm)
	assert.Equal(t, 0.0, day.TemperatureC)
	assert.Equal(t, 0.0, day.WindSpeedKmh)
	assert.Equal(t, Weekday(time.Monday), day.DayOfWeek)
	assert.ElementsMatch(t, []string{FieldSnowfall, FieldTemperature, FieldWindSpeed, FieldSnowDepth}, day.Missing)
}

func TestNormalize_ClampsNegatives(t *testing.T) {
	day := NewNormalizer(DefaultSnowRatio).Normalize(RawForecastSample{
		Date:             "2026-01-17",
		SnowfallSumMM:    f64(-2),
		TemperatureMaxC:  f64(-12),
		WindSpeedMaxKmh:  f64(-5),
		HourlySnowDepthM: []*float64{f64(-0.1), f64(-0.1)},
	}, nil)

	assert.Equal(t, 0.0, day.SnowDepthCm)
	assert.Equal(t, 0.0, day.FreshSnowCm)
	assert.Equal(t, 0.0, day.WindSpeedKmh)
	assert.Equal(t, -12.0, day.TemperatureC, "temperature may be negative")
}

func TestNormalize_BadDateMarksMissing(t *testing.T) {
	for _, date := range []string{"17/01/2026", ""} {
		day := NewNormalizer(DefaultSnowRatio).Normalize(RawForecastSample{Date: date}, nil)
		assert.Contains(t, day.Missing, FieldDate, date)
		assert.Equal(t, UnknownWeekday, day.DayOfWeek, date)
		assert.False(t, day.DayOfWeek.IsWeekend(), "unknown day must not count as a weekend")
	}
}

func TestNormalize_WeekdayUsesResortZone(t *testing.T) {
	// The date string is already local; the zone must not shift it to another day.
	tokyo := time.FixedZone("JST", 9*3600)
	honolulu := time.FixedZone("HST", -10*3600)

	for _, loc := range []*time.Location{time.UTC, tokyo, honolulu} {
		day := NewNormalizer(DefaultSnowRatio).Normalize(RawForecastSample{Date: "2026-01-18", Location: loc}, nil)
		assert.Equal(t, Weekday(time.Sunday), day.DayOfWeek, loc.String())
	}
}

func TestNormalizeDays_PriorDepthChaining(t *testing.T) {
	n := NewNormalizer(DefaultSnowRatio)
	days := n.NormalizeDays([]RawForecastSample{
		{Date: "2026-01-17", SnowfallSumMM: f64(10), SnowDepthM: f64(1.0)},
		{Date: "2026-01-18", SnowfallSumMM: f64(20)},
	})

	require.Len(t, days, 2)
	assert.Equal(t, 115.0, days[0].SnowDepthCm, "today: daily depth plus fresh")
	assert.Equal(t, 145.0, days[1].SnowDepthCm, "tomorrow: today's depth plus fresh")
	assert.NotContains(t, days[1].Missing, FieldSnowDepth)
}

func TestNormalizeDays_NoPriorDepth(t *testing.T) {
	days := NewNormalizer(DefaultSnowRatio).NormalizeDays([]RawForecastSample{
		{Date: "2026-01-17", SnowfallSumMM: f64(4)},
		{Date: "2026-01-18", SnowfallSumMM: f64(2)},
	})

	require.Len(t, days, 2)
	assert.Equal(t, 6.0, days[0].SnowDepthCm)
	assert.Contains(t, days[0].Missing, FieldSnowDepth)
	assert.Equal(t, 9.0, days[1].SnowDepthCm)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"Saturday", time.Saturday, false},
		{"saturday", time.Saturday, false},
		{"SAT", time.Saturday, false},
		{"0", time.Sunday, false},
		{"6", time.Saturday, false},
		{" 3 ", time.Wednesday, false},
		{"7", 0, true},
		{"-1", 0, true},
		{"Caturday", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrValidation, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, Weekday(tt.want), got)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("", Tomorrow)
	require.NoError(t, err)
	assert.Equal(t, Tomorrow, d)

	d, err = ParseDay(" Today ", Tomorrow)
	require.NoError(t, err)
	assert.Equal(t, Today, d)

	_, err = ParseDay("yesterday", Tomorrow)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWeekday_MarshalJSON(t *testing.T) {
	b, err := Weekday(time.Saturday).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"Saturday"`, string(b))
	assert.True(t, Weekday(time.Sunday).IsWeekend())
	assert.False(t, Weekday(time.Friday).IsWeekend())

	b, err = UnknownWeekday.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
	assert.False(t, UnknownWeekday.Known())
	assert.Empty(t, UnknownWeekday.String())
}

func TestNormalize_SnowfallCmSkipsRatio(t *testing.T) {
	day := NewNormalizer(DefaultSnowRatio).Normalize(RawForecastSample{
		Date:          "2026-01-17",
		SnowfallCm:    f64(12.34),
		SnowfallSumMM: f64(100),
	}, nil)

	assert.Equal(t, 12.3, day.FreshSnowCm)
	assert.NotContains(t, day.Missing, FieldSnowfall)
}
