package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/skisignal/internal/resort"
)

// Day selects which forecast day a ranking or score refers to.
type Day string

const (
	Today    Day = "today"
	Tomorrow Day = "tomorrow"
)

// ParseDay accepts "today" or "tomorrow" (case-insensitive). Empty input yields def.
func ParseDay(s string, def Day) (Day, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case string(Today):
		return Today, nil
	case string(Tomorrow):
		return Tomorrow, nil
	default:
		return "", fmt.Errorf("%w: day must be %q or %q", ErrValidation, Today, Tomorrow)
	}
}

// Weekday is a time.Weekday that serializes as its English name.
type Weekday time.Weekday

// UnknownWeekday marks a day whose date could not be read. It is never a weekend
// and serializes as null.
const UnknownWeekday Weekday = -1

// Known reports whether w is a real day of the week.
func (w Weekday) Known() bool {
	return w >= Weekday(time.Sunday) && w <= Weekday(time.Saturday)
}

func (w Weekday) String() string {
	if !w.Known() {
		return ""
	}
	return time.Weekday(w).String()
}

// IsWeekend reports whether w is Saturday or Sunday.
func (w Weekday) IsWeekend() bool {
	return time.Weekday(w) == time.Saturday || time.Weekday(w) == time.Sunday
}

func (w Weekday) MarshalJSON() ([]byte, error) {
	if !w.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

// ParseWeekday accepts an English weekday name or a number 0..6 with Sunday = 0.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: dayOfWeek %d out of range 0..6", ErrValidation, n)
		}
		return Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) || strings.EqualFold(s, d.String()[:3]) {
			return Weekday(d), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown dayOfWeek %q", ErrValidation, s)
}

// RawForecastSample holds one day of upstream readings exactly as delivered.
// Nil pointers mark fields the source did not provide.
type RawForecastSample struct {
	Date string // YYYY-MM-DD in the resort's local zone

	SnowfallSumMM   *float64 // water equivalent
	SnowfallCm      *float64 // snowfall already in cm; wins over SnowfallSumMM when set
	SnowDepthM      *float64 // daily depth, when the source reports one
	TemperatureMaxC *float64
	WindSpeedMaxKmh *float64

	// HourlySnowDepthM is the day's slice of the hourly depth series (up to 24 points).
	HourlySnowDepthM []*float64

	Location *time.Location
}

// NormalizedDay is the cleaned view of one forecast day that the scoring engine consumes.
type NormalizedDay struct {
	Date         string  `json:"date"`
	SnowDepthCm  float64 `json:"snow"`
	FreshSnowCm  float64 `json:"freshSnow"`
	TemperatureC float64 `json:"temp"`
	WindSpeedKmh float64 `json:"wind"`
	DayOfWeek    Weekday `json:"dayOfWeek"`

	// Missing lists upstream fields that were absent and defaulted to 0.
	Missing []string `json:"missing,omitempty"`
}

// Verdict is the categorical recommendation for a day.
type Verdict string

const (
	VerdictGo      Verdict = "GO"
	VerdictGoStorm Verdict = "GO (storm)" // score tier; ScoreResult.Storm flags an actual storm
	VerdictMeh     Verdict = "MEH"
	VerdictSkip    Verdict = "SKIP"
)

// Rank orders verdicts for ranking: GO=3, GO (storm)=2, MEH=1, SKIP=0.
func (v Verdict) Rank() int {
	switch v {
	case VerdictGo:
		return 3
	case VerdictGoStorm:
		return 2
	case VerdictMeh:
		return 1
	default:
		return 0
	}
}

// ScoreResult is the scoring engine's output for one NormalizedDay.
type ScoreResult struct {
	Score          float64  `json:"snowScore"`
	CrowdScore     float64  `json:"crowdScore"`
	SlopeCondition *int     `json:"slopeCondition,omitempty"`
	Verdict        Verdict  `json:"verdict"`
	Reasons        []string `json:"reasons,omitempty"`
	LiftsClosed    bool     `json:"liftsClosed,omitempty"`
	Storm          bool     `json:"storm,omitempty"`
}

// DayReport pairs a normalized day with its score. It serializes flat.
type DayReport struct {
	NormalizedDay
	ScoreResult
}

// ResortForecast is the scored two-day forecast for a resort, as cached.
type ResortForecast struct {
	Resort    resort.Resort `json:"resort"`
	Today     DayReport     `json:"today"`
	Tomorrow  DayReport     `json:"tomorrow"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// ForDay returns the report for the requested day.
func (f ResortForecast) ForDay(d Day) DayReport {
	if d == Today {
		return f.Today
	}
	return f.Tomorrow
}

// RankedResult is one resort's entry in a ranking pass.
type RankedResult struct {
	Resort   resort.Resort `json:"resort"`
	Today    DayReport     `json:"today"`
	Tomorrow DayReport     `json:"tomorrow"`
}

// ResortFailure records a resort that could not be fetched during a ranking pass.
type ResortFailure struct {
	Resort string `json:"resort"`
	Error  bool   `json:"error"`
	Reason string `json:"message"`
}

// BestDayReport is the aggregate served to the dashboard.
type BestDayReport struct {
	BestToday    *RankedResult   `json:"bestToday"`
	BestTomorrow *RankedResult   `json:"bestTomorrow"`
	All          []RankedResult  `json:"all"`
	Failures     []ResortFailure `json:"failures,omitempty"`
}
