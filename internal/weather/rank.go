package weather

import "sort"

// ForDay returns the report for the requested day.
func (r RankedResult) ForDay(d Day) DayReport {
	if d == Today {
		return r.Today
	}
	return r.Tomorrow
}

// RankResults returns a copy of results ordered best first for day: by verdict rank,
// then score, then fresh snowfall, all descending. Resort ID breaks any remaining tie
// so the order never depends on input order.
func RankResults(results []RankedResult, day Day) []RankedResult {
	out := make([]RankedResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return outranks(out[i], out[j], day)
	})
	return out
}

func outranks(a, b RankedResult, day Day) bool {
	ra, rb := a.ForDay(day), b.ForDay(day)
	if va, vb := ra.Verdict.Rank(), rb.Verdict.Rank(); va != vb {
		return va > vb
	}
	if ra.Score != rb.Score {
		return ra.Score > rb.Score
	}
	if ra.FreshSnowCm != rb.FreshSnowCm {
		return ra.FreshSnowCm > rb.FreshSnowCm
	}
	return a.Resort.ID < b.Resort.ID
}
