package usecase

import (
	"errors"
	"testing"
	"time"

	"SigmaSync/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liveFrame = `{
  "timestamp": "2025-01-06T10:15:00.123456+09:00",
  "symbol": "KOSPI200F",
  "price": 352.1,
  "regime": "bull",
  "score": 0.64,
  "confidence": 0.71,
  "agreement": 0.8,
  "variance": 0.02,
  "meta_probability": 0.66,
  "models": [
    {"name": "lstm", "signal": 0.7, "confidence": 0.9},
    {"name": "xgb", "signal": null, "confidence": 0.0}
  ],
  "market_closed": false
}`

const closedFrame = `{
  "timestamp": "2025-01-06T18:00:00+09:00",
  "symbol": "KOSPI200F",
  "price": null,
  "regime": "market_closed",
  "score": null,
  "confidence": 0.0,
  "models": [],
  "market_closed": true,
  "snapshot": {
    "next_open_regime": "bull",
    "next_open_score": 0.42,
    "next_open_confidence": 0.6,
    "scenarios": [
      {"change": "+1%", "score": 0.52, "action": "HOLD"},
      {"change": "0%", "score": 0.42, "action": "HOLD"},
      {"change": "-1%", "score": 0.32, "action": "HOLD"}
    ]
  }
}`

func TestValidateLiveSnapshot(t *testing.T) {
	v := NewSnapshotValidator()
	s, err := v.Validate([]byte(liveFrame))
	require.NoError(t, err)

	assert.Equal(t, models.RegimeBull, s.Regime)
	assert.Equal(t, "KOSPI200F", s.Symbol)
	assert.Equal(t, 0.64, s.Score.OrElse(0))
	assert.False(t, s.Strength.IsKnown())
	assert.False(t, s.IsClosed())

	ts, ok := s.Timestamp.Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 6, 1, 15, 0, 123456000, time.UTC), ts.UTC())

	ms, ok := s.Models.Get()
	require.True(t, ok)
	require.Len(t, ms, 2)
	assert.False(t, ms[1].Signal.IsKnown(), "null signal stays unknown")
	conf, ok := ms[1].Confidence.Get()
	assert.True(t, ok, "zero confidence is known")
	assert.Equal(t, 0.0, conf)
}

func TestValidateClosedSnapshot(t *testing.T) {
	v := NewSnapshotValidator()
	s, err := v.Validate([]byte(closedFrame))
	require.NoError(t, err)

	assert.True(t, s.IsClosed())
	assert.False(t, s.Score.IsKnown())
	r, ok := s.ClosedReport.Get()
	require.True(t, ok)
	assert.Equal(t, models.RegimeBull, r.NextOpenRegime)
	require.Len(t, r.Scenarios, 3)
	assert.Equal(t, "-1%", r.Scenarios[2].Change)
	ms, ok := s.Models.Get()
	assert.True(t, ok)
	assert.Empty(t, ms)
}

func TestValidateErrorRegime(t *testing.T) {
	v := NewSnapshotValidator()
	s, err := v.Validate([]byte(`{"regime":"error","score":null,"error":"price_is_None","timestamp":1736125200}`))
	require.NoError(t, err)
	assert.Equal(t, models.RegimeError, s.Regime)
	assert.Equal(t, "price_is_None", s.Error)
	assert.True(t, s.Timestamp.IsKnown())
}

func TestValidateUnparsableTimestampIsUnknown(t *testing.T) {
	v := NewSnapshotValidator()
	s, err := v.Validate([]byte(`{"regime":"neutral","timestamp":"soon"}`))
	require.NoError(t, err)
	assert.False(t, s.Timestamp.IsKnown())
	assert.False(t, s.Models.IsKnown())
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":              `{"regime":`,
		"array frame":           `[{"regime":"bull"}]`,
		"missing regime":        `{"score":0.2}`,
		"unknown regime":        `{"regime":"sideways"}`,
		"string score":          `{"regime":"bull","score":"0.7"}`,
		"object confidence":     `{"regime":"bull","confidence":{"v":1}}`,
		"models not list":       `{"regime":"bull","models":{"name":"x"}}`,
		"model without name":    `{"regime":"bull","models":[{"signal":0.1,"confidence":0.2}]}`,
		"model string conf":     `{"regime":"bull","models":[{"name":"a","signal":0.1,"confidence":"high"}]}`,
		"duplicate model":       `{"regime":"bull","models":[{"name":"a"},{"name":"a"}]}`,
		"closed regime no flag": `{"regime":"market_closed","market_closed":false}`,
		"scenario no action":    `{"regime":"market_closed","market_closed":true,"snapshot":{"scenarios":[{"change":"+1%"}]}}`,
	}
	v := NewSnapshotValidator()
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMalformedSnapshot))
		})
	}
}

func TestValidateBatch(t *testing.T) {
	v := NewSnapshotValidator()

	snaps, errs := v.ValidateBatch([]byte(`[{"regime":"bull","symbol":"a"},{"regime":"?"},{"regime":"bear","symbol":"c"}]`))
	require.Len(t, snaps, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "a", snaps[0].Symbol)
	assert.Equal(t, "c", snaps[1].Symbol)

	snaps, errs = v.ValidateBatch([]byte(`{"regime":"neutral","symbol":"single"}`))
	require.Empty(t, errs)
	require.Len(t, snaps, 1)

	_, errs = v.ValidateBatch([]byte(`  `))
	require.Len(t, errs, 1)
}
