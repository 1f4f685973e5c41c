package usecase

import (
	"sort"

	"SigmaSync/internal/domain/models"
)

// Phase band edges on the composite score.
const (
	strongBullFrom = 0.6
	weakBullFrom   = 0.2
	weakBearTo     = -0.2
	strongBearTo   = -0.6
)

// Classify maps a composite score onto a market phase and advice. An unknown
// score has no classification.
func Classify(score models.Optional[float64]) models.Optional[models.Classification] {
	s, ok := score.Get()
	if !ok {
		return models.Unknown[models.Classification]()
	}

	c := models.Classification{Score: s}
	switch {
	case s >= strongBullFrom:
		c.Phase, c.Label, c.Advice = models.PhaseStrongBull, "Strong bull", "BUY"
	case s >= weakBullFrom:
		c.Phase, c.Label, c.Advice = models.PhaseWeakBull, "Weak bull", "buy on dips"
	case s > weakBearTo:
		c.Phase, c.Label, c.Advice = models.PhaseNeutral, "Neutral", "HOLD"
	case s > strongBearTo:
		c.Phase, c.Label, c.Advice = models.PhaseWeakBear, "Weak bear", "light sell"
	default:
		c.Phase, c.Label, c.Advice = models.PhaseStrongBear, "Strong bear", "SELL"
	}
	return models.Known(c)
}

// DeriveMarketView routes the latest snapshot to its panel. A closed flag
// without a report degrades instead of failing.
func DeriveMarketView(latest models.Optional[models.Snapshot]) models.MarketView {
	s, ok := latest.Get()
	if !ok {
		return models.MarketView{Mode: models.ModeNoData}
	}

	v := models.MarketView{
		Regime:       s.Regime,
		ModelAverage: AverageModelConfidence(s),
	}
	if !s.IsClosed() {
		v.Mode = models.ModeLive
		v.Classification = Classify(s.Score)
		return v
	}
	if !s.ClosedReport.IsKnown() {
		v.Mode = models.ModeClosedReportUnavailable
		v.Degraded = models.ErrMissingClosedReport.Error()
		return v
	}
	v.Mode = models.ModeClosed
	v.ClosedReport = s.ClosedReport
	return v
}

// AverageModelConfidence is the mean of the known model confidences in one
// snapshot.
func AverageModelConfidence(s models.Snapshot) models.Optional[float64] {
	ms, ok := s.Models.Get()
	if !ok {
		return models.Unknown[float64]()
	}
	var sum float64
	n := 0
	for _, m := range ms {
		if c, ok := m.Confidence.Get(); ok {
			sum += c
			n++
		}
	}
	if n == 0 {
		return models.Unknown[float64]()
	}
	return models.Known(sum / float64(n))
}

// BuildLeaderboard ranks models by mean known confidence over history. A
// model only contributes from snapshots it appears in; models without any
// known confidence rank last. Ties keep first-observed order.
func BuildLeaderboard(history []models.Snapshot) []models.LeaderboardEntry {
	type acc struct {
		name    string
		sum     float64
		known   int
		samples int
	}
	var order []*acc
	byName := make(map[string]*acc)

	for _, s := range history {
		ms, ok := s.Models.Get()
		if !ok {
			continue
		}
		for _, m := range ms {
			a := byName[m.Name]
			if a == nil {
				a = &acc{name: m.Name}
				byName[m.Name] = a
				order = append(order, a)
			}
			a.samples++
			if c, ok := m.Confidence.Get(); ok {
				a.sum += c
				a.known++
			}
		}
	}

	entries := make([]models.LeaderboardEntry, len(order))
	for i, a := range order {
		e := models.LeaderboardEntry{Name: a.name, Samples: a.samples}
		if a.known > 0 {
			e.MeanConfidence = models.Known(a.sum / float64(a.known))
		}
		entries[i] = e
	}

	sort.SliceStable(entries, func(i, j int) bool {
		mi, iok := entries[i].MeanConfidence.Get()
		mj, jok := entries[j].MeanConfidence.Get()
		if iok != jok {
			return iok
		}
		return iok && mi > mj
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// TopModels returns the names of the first n ranked entries.
func TopModels(board []models.LeaderboardEntry, n int) []string {
	if n > len(board) {
		n = len(board)
	}
	if n < 0 {
		n = 0
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = board[i].Name
	}
	return names
}

// ConfidenceTrend tracks each named model's confidence across the last
// `window` snapshots. A model absent from a snapshot reads as Unknown.
func ConfidenceTrend(history []models.Snapshot, names []string, window int) []models.TrendPoint {
	if window <= 0 {
		return []models.TrendPoint{}
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	points := make([]models.TrendPoint, len(history))
	for i, s := range history {
		conf := make(map[string]models.Optional[float64], len(names))
		for _, n := range names {
			conf[n] = models.Unknown[float64]()
		}
		if ms, ok := s.Models.Get(); ok {
			for _, m := range ms {
				if _, tracked := conf[m.Name]; tracked {
					conf[m.Name] = m.Confidence
				}
			}
		}
		points[i] = models.TrendPoint{Seq: s.Seq, Confidence: conf}
	}
	return points
}

// DeriveLeaderboard bundles ranking, top names and trend for one history copy.
func DeriveLeaderboard(history []models.Snapshot, top, window int) models.Leaderboard {
	entries := BuildLeaderboard(history)
	names := TopModels(entries, top)
	return models.Leaderboard{
		Entries: entries,
		Top:     names,
		Trend:   ConfidenceTrend(history, names, window),
	}
}
