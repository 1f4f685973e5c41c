package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SigmaSync/internal/domain/models"
	"SigmaSync/pkg/util"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

// Wire shapes as the upstream sends them. Pointers keep absent and null
// distinct from zero; a string where a number belongs fails decoding.

type snapshotPayload struct {
	Timestamp       interface{}          `json:"timestamp"`
	Symbol          string               `json:"symbol"`
	Regime          string               `json:"regime" validate:"required,oneof=bull bear neutral market_closed error"`
	Score           *float64             `json:"score"`
	Confidence      *float64             `json:"confidence"`
	Strength        *float64             `json:"strength"`
	Price           *float64             `json:"price"`
	Agreement       *float64             `json:"agreement"`
	Variance        *float64             `json:"variance"`
	MetaProbability *float64             `json:"meta_probability"`
	Models          *[]modelPayload      `json:"models" validate:"omitempty,dive"`
	MarketClosed    *bool                `json:"market_closed"`
	Report          *closedReportPayload `json:"snapshot" validate:"omitempty"`
	Error           string               `json:"error"`
}

type modelPayload struct {
	Name       string   `json:"name" validate:"required"`
	Signal     *float64 `json:"signal"`
	Confidence *float64 `json:"confidence"`
}

type closedReportPayload struct {
	NextOpenRegime     string            `json:"next_open_regime"`
	NextOpenScore      *float64          `json:"next_open_score"`
	NextOpenConfidence *float64          `json:"next_open_confidence"`
	Scenarios          []scenarioPayload `json:"scenarios" validate:"dive"`
}

type scenarioPayload struct {
	Change string   `json:"change" validate:"required"`
	Score  *float64 `json:"score"`
	Action string   `json:"action" validate:"required"`
}

// SnapshotValidator turns raw payloads into typed snapshots or rejects them.
type SnapshotValidator struct {
	validate *validator.Validate
}

func NewSnapshotValidator() *SnapshotValidator {
	v := validator.New()
	v.RegisterStructValidation(snapshotRules, snapshotPayload{})
	return &SnapshotValidator{validate: v}
}

func snapshotRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(snapshotPayload)

	if p.Regime == string(models.RegimeMarketClosed) && (p.MarketClosed == nil || !*p.MarketClosed) {
		sl.ReportError(p.MarketClosed, "MarketClosed", "market_closed", "closed_flag", "")
	}
	if p.Models != nil {
		seen := make(map[string]struct{}, len(*p.Models))
		for _, m := range *p.Models {
			if _, dup := seen[m.Name]; dup {
				sl.ReportError(p.Models, "Models", "models", "unique_name", m.Name)
				return
			}
			seen[m.Name] = struct{}{}
		}
	}
}

// Validate decodes and checks one snapshot payload. Errors wrap
// models.ErrMalformedSnapshot.
func (v *SnapshotValidator) Validate(raw []byte) (models.Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.Snapshot{}, fmt.Errorf("%w: payload is not an object", models.ErrMalformedSnapshot)
	}

	var p snapshotPayload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: decode: %v", models.ErrMalformedSnapshot, err)
	}
	if err := v.validate.Struct(p); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s", models.ErrMalformedSnapshot, describe(err))
	}
	return p.toSnapshot(), nil
}

// ValidateBatch accepts a JSON array (most recent last) or a single object.
// Each element is checked on its own; valid ones are returned in order.
func (v *SnapshotValidator) ValidateBatch(raw []byte) ([]models.Snapshot, []error) {
	items, err := SplitPayload(raw)
	if err != nil {
		return nil, []error{err}
	}
	var (
		out  []models.Snapshot
		errs []error
	)
	for _, item := range items {
		s, err := v.Validate(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

// SplitPayload breaks a pull response into per-snapshot payloads.
func SplitPayload(raw []byte) ([][]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrMalformedSnapshot)
	}
	if raw[0] != '[' {
		return [][]byte{raw}, nil
	}
	var items []json.RawMessage
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode list: %v", models.ErrMalformedSnapshot, err)
	}
	out := make([][]byte, len(items))
	for i, it := range items {
		out[i] = []byte(it)
	}
	return out, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func (p snapshotPayload) toSnapshot() models.Snapshot {
	s := models.Snapshot{
		Symbol:          p.Symbol,
		Regime:          models.Regime(p.Regime),
		Score:           models.FromPtr(p.Score),
		Confidence:      models.FromPtr(p.Confidence),
		Strength:        models.FromPtr(p.Strength),
		Price:           models.FromPtr(p.Price),
		Agreement:       models.FromPtr(p.Agreement),
		Variance:        models.FromPtr(p.Variance),
		MetaProbability: models.FromPtr(p.MetaProbability),
		MarketClosed:    models.FromPtr(p.MarketClosed),
		Error:           p.Error,
	}
	s.Timestamp = parseTimestamp(p.Timestamp)
	if p.Models != nil {
		ms := make([]models.ModelSignal, len(*p.Models))
		for i, m := range *p.Models {
			ms[i] = models.ModelSignal{
				Name:       m.Name,
				Signal:     models.FromPtr(m.Signal),
				Confidence: models.FromPtr(m.Confidence),
			}
		}
		s.Models = models.Known(ms)
	}
	// the report only belongs to closed snapshots
	if p.Report != nil && s.IsClosed() {
		r := models.ClosedReport{
			NextOpenRegime:     models.Regime(p.Report.NextOpenRegime),
			NextOpenScore:      models.FromPtr(p.Report.NextOpenScore),
			NextOpenConfidence: models.FromPtr(p.Report.NextOpenConfidence),
			Scenarios:          make([]models.Scenario, len(p.Report.Scenarios)),
		}
		for i, sc := range p.Report.Scenarios {
			r.Scenarios[i] = models.Scenario{Change: sc.Change, Score: models.FromPtr(sc.Score), Action: sc.Action}
		}
		s.ClosedReport = models.Known(r)
	}
	return s
}

// parseTimestamp accepts ISO strings or unix seconds; anything else is Unknown.
func parseTimestamp(v interface{}) models.Optional[time.Time] {
	switch ts := v.(type) {
	case string:
		if t, ok := util.ParseTime(ts); ok {
			return models.Known(t)
		}
	case float64:
		if ts > 0 {
			sec := int64(ts)
			return models.Known(time.Unix(sec, int64((ts-float64(sec))*1e9)))
		}
	}
	return models.Unknown[time.Time]()
}
