package models

// Phase is a market-phase band derived from the composite score.
type Phase string

const (
	PhaseStrongBull Phase = "strong_bull"
	PhaseWeakBull   Phase = "weak_bull"
	PhaseNeutral    Phase = "neutral"
	PhaseWeakBear   Phase = "weak_bear"
	PhaseStrongBear Phase = "strong_bear"
)

type Classification struct {
	Phase  Phase   `json:"phase"`
	Label  string  `json:"label"`
	Advice string  `json:"advice"`
	Score  float64 `json:"score"`
}

// ViewMode tells a renderer which panel the latest snapshot calls for.
type ViewMode string

const (
	ModeNoData                  ViewMode = "no_data"
	ModeLive                    ViewMode = "live"
	ModeClosed                  ViewMode = "closed"
	ModeClosedReportUnavailable ViewMode = "closed_report_unavailable"
)

// MarketView is the routed market panel for the latest snapshot.
type MarketView struct {
	Mode           ViewMode                 `json:"mode"`
	Classification Optional[Classification] `json:"classification"`
	ClosedReport   Optional[ClosedReport]   `json:"closed_report"`
	Regime         Regime                   `json:"regime,omitempty"`
	ModelAverage   Optional[float64]        `json:"model_confidence_avg"`
	Degraded       string                   `json:"degraded,omitempty"`
}

// Err returns ErrMissingClosedReport for the degraded closed mode.
func (v MarketView) Err() error {
	if v.Mode == ModeClosedReportUnavailable {
		return ErrMissingClosedReport
	}
	return nil
}

type LeaderboardEntry struct {
	Rank           int               `json:"rank"`
	Name           string            `json:"name"`
	MeanConfidence Optional[float64] `json:"mean_confidence"`
	Samples        int               `json:"samples"`
}

// TrendPoint holds the confidence of each tracked model for one snapshot.
type TrendPoint struct {
	Seq        uint64                       `json:"seq"`
	Confidence map[string]Optional[float64] `json:"confidence"`
}

type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
	Top     []string           `json:"top"`
	Trend   []TrendPoint       `json:"trend"`
}
