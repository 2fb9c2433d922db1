// Package scoring turns a normalized forecast day into a ski score and verdict.
//
// The engine is pure: the same NormalizedDay and Policy always produce the same
// ScoreResult. Score contributions are applied in a fixed order (depth, fresh
// snow, temperature, wind, storm) and each contribution that fires appends its
// reason, so Reasons reads in that order too.
//
// When wind exceeds Policy.LiftsClosedAbove the score is capped one point below
// MehFloor. The verdict therefore stays a function of the score alone while
// lifts-closed days always come out as SKIP.
package scoring

import (
	"math"

	"github.com/i474232898/skisignal/internal/weather"
)

// Engine scores days under a fixed Policy.
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine. The policy is expected to be valid.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Score computes the ScoreResult for day.
func (e *Engine) Score(day weather.NormalizedDay) weather.ScoreResult {
	p := e.policy

	depth := nonNegative(day.SnowDepthCm)
	fresh := nonNegative(day.FreshSnowCm)
	wind := nonNegative(day.WindSpeedKmh)
	temp := day.TemperatureC
	if math.IsNaN(temp) {
		temp = 0
	}

	var (
		score   float64
		reasons []string
	)
	add := func(points float64, reason string) {
		score += points
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if b, ok := match(p.DepthBands, depth); ok {
		add(b.Points, b.Reason)
	} else {
		add(p.ThinCoverPoints, p.ThinCoverReason)
	}

	if b, ok := match(p.FreshBands, fresh); ok {
		add(b.Points, b.Reason)
	}

	if temp >= p.ColdSmokeMin && temp <= p.ColdSmokeMax {
		add(p.ColdSmokePoints, p.ColdSmokeReason)
	} else if b, ok := match(p.WarmBands, temp); ok {
		add(b.Points, b.Reason)
	}

	if b, ok := match(p.WindBands, wind); ok {
		add(b.Points, b.Reason)
	}

	storm := fresh > p.StormFreshAbove && wind > p.StormWindAbove && wind <= p.StormWindMax
	if storm {
		add(p.StormPoints, p.StormReason)
	}

	liftsClosed := wind > p.LiftsClosedAbove
	if liftsClosed {
		score = math.Min(score, p.MehFloor-1)
	}

	res := weather.ScoreResult{
		Score:       score,
		CrowdScore:  e.crowd(day.DayOfWeek, fresh),
		Verdict:     p.Verdict(score),
		Reasons:     reasons,
		LiftsClosed: liftsClosed,
		Storm:       storm,
	}
	if p.SlopeConditionEnabled {
		sc := e.slopeCondition(depth, temp, wind)
		res.SlopeCondition = &sc
	}
	return res
}

// Verdict maps a score onto exactly one verdict.
func (p Policy) Verdict(score float64) weather.Verdict {
	switch {
	case score >= p.GoFloor:
		return weather.VerdictGo
	case score >= p.StormFloor:
		return weather.VerdictGoStorm
	case score >= p.MehFloor:
		return weather.VerdictMeh
	default:
		return weather.VerdictSkip
	}
}

func (e *Engine) crowd(dow weather.Weekday, fresh float64) float64 {
	var c float64
	if dow.IsWeekend() {
		c += e.policy.WeekendCrowdPoints
	}
	if fresh > e.policy.PowderCrowdAbove {
		c += e.policy.PowderCrowdPoints
	}
	return c
}

func (e *Engine) slopeCondition(depth, temp, wind float64) int {
	p := e.policy
	v := math.Min(depth, p.SlopeDepthCapCm) / p.SlopeDepthCapCm * 100
	v -= math.Max(0, temp) * p.SlopeWarmPerDegree
	v -= math.Max(0, wind-p.SlopeWindFreeKmh) * p.SlopeWindPerKmh
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func match(bands []Band, v float64) (Band, bool) {
	for _, b := range bands {
		if v > b.Above {
			return b, true
		}
	}
	return Band{}, false
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
