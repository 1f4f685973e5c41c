package models

import "time"

// Regime is the coarse market-direction label carried by a snapshot.
type Regime string

const (
	RegimeBull    Regime = "bull"
	RegimeBear    Regime = "bear"
	RegimeNeutral Regime = "neutral"

	// Upstream sentinels. market_closed pairs with the closed flag, error
	// marks a reading the upstream failed to produce.
	RegimeMarketClosed Regime = "market_closed"
	RegimeError        Regime = "error"
)

// Source identifies which acquisition path delivered a snapshot.
type Source string

const (
	SourcePush      Source = "push"
	SourcePull      Source = "pull"
	SourceBootstrap Source = "bootstrap"
)

// Snapshot is one point-in-time reading from the upstream analytics system.
// Fields other than Seq, Source and ReceivedAt come from upstream and are
// never modified after acceptance.
type Snapshot struct {
	Timestamp       Optional[time.Time]     `json:"timestamp"`
	Symbol          string                  `json:"symbol"`
	Regime          Regime                  `json:"regime"`
	Score           Optional[float64]       `json:"score"`
	Confidence      Optional[float64]       `json:"confidence"`
	Strength        Optional[float64]       `json:"strength"`
	Price           Optional[float64]       `json:"price"`
	Agreement       Optional[float64]       `json:"agreement"`
	Variance        Optional[float64]       `json:"variance"`
	MetaProbability Optional[float64]       `json:"meta_probability"`
	Models          Optional[[]ModelSignal] `json:"models"`
	MarketClosed    Optional[bool]          `json:"market_closed"`
	ClosedReport    Optional[ClosedReport]  `json:"snapshot"`
	Error           string                  `json:"error,omitempty"`

	Seq        uint64    `json:"seq"`
	Source     Source    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// IsClosed reports whether the market-closed flag is set.
func (s Snapshot) IsClosed() bool {
	return s.MarketClosed.OrElse(false)
}

// ModelSignal is one model's contribution inside a snapshot.
type ModelSignal struct {
	Name       string            `json:"name"`
	Signal     Optional[float64] `json:"signal"`
	Confidence Optional[float64] `json:"confidence"`
}

// ClosedReport is the next-open outlook published while the market is closed.
type ClosedReport struct {
	NextOpenRegime     Regime            `json:"next_open_regime"`
	NextOpenScore      Optional[float64] `json:"next_open_score"`
	NextOpenConfidence Optional[float64] `json:"next_open_confidence"`
	Scenarios          []Scenario        `json:"scenarios"`
}

// Scenario is one projected move and the action advised for it.
type Scenario struct {
	Change string            `json:"change"`
	Score  Optional[float64] `json:"score"`
	Action string            `json:"action"` // BUY, SELL, HOLD or free text
}
