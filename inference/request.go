// inference/request.go
package inference

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/market"
	"github.com/quantfx/advisor/pkg/id"
)

// Mode selects the data source for a pass: the live account or the
// synthetic dataset.
type Mode string

const (
	ModeReal      Mode = "real"
	ModeSimulated Mode = "simulated"
)

// ParseMode maps a config/CLI string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "real":
		return ModeReal, true
	case "simulated", "sim":
		return ModeSimulated, true
	}
	return "", false
}

// Tag returns the short form used in request IDs and directory names.
func (m Mode) Tag() string {
	if m == ModeSimulated {
		return "sim"
	}
	return "real"
}

// Trigger records what initiated a pass.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerPeriodic Trigger = "periodic"
)

// Origin records which path produced a result.
type Origin string

const (
	ByEngine   Origin = "engine"
	ByFallback Origin = "fallback"
)

// Request represents one invocation attempt. Immutable once created and
// consumed fully within a single pass.
type Request struct {
	ID          string
	Mode        Mode
	RequestedAt time.Time
	TriggeredBy Trigger
}

// NewRequest creates a request with a fresh mode-tagged, time-sortable ID.
func NewRequest(mode Mode, trigger Trigger) Request {
	return Request{
		ID:          id.Tagged(mode.Tag()),
		Mode:        mode,
		RequestedAt: time.Now().UTC(),
		TriggeredBy: trigger,
	}
}

// Direction is the recommended action for a pair.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
	Hold Direction = "hold"
)

// Recommendation is the structured action part of a result. SizeFraction is
// the fraction of the pair's base-currency balance to commit; Amount is
// that fraction applied to the snapshot balance.
type Recommendation struct {
	Pair         market.Pair     `json:"pair"`
	Direction    Direction       `json:"direction"`
	SizeFraction decimal.Decimal `json:"size_fraction"`
	Amount       decimal.Decimal `json:"amount"`
}

// RawOutput is an unclassified analysis product, produced either by the
// external engine or by the fallback analyzer. The classifier turns it
// into a Result.
type RawOutput struct {
	Pair         market.Pair     `json:"pair"`
	Direction    Direction       `json:"action"`
	SizeFraction decimal.Decimal `json:"size_fraction"`
	Amount       decimal.Decimal `json:"amount"`
	Confidence   float64         `json:"confidence"`
	Narrative    string          `json:"narrative"`
}

// Result is the output entity of one pass. The classified fields never
// change after Classify; the store fills in Location on persistence.
type Result struct {
	RequestID      string         `json:"request_id"`
	SourceMode     Mode           `json:"source_mode"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
	Narrative      string         `json:"narrative"`
	GeneratedBy    Origin         `json:"generated_by"`
	GeneratedAt    time.Time      `json:"generated_at"`

	// Location is the directory the result was persisted to, filled in by
	// the store. Empty when persistence failed.
	Location string `json:"-"`
}
