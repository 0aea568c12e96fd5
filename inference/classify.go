// inference/classify.go
package inference

import "time"

// Confidence bounds per mode and origin. A real-data engine run is the
// authoritative product and is floored accordingly; synthetic-mode engine
// runs are capped below it; the degraded fallback path must never look as
// trustworthy as a full engine run, whatever the mode.
const (
	realEngineConfidenceFloor = 0.9
	simEngineConfidenceCap    = 0.8
	fallbackConfidenceCap     = 0.5
)

// Classify labels a raw analysis product and enforces the confidence
// bounds. The returned result is immutable from here on.
func Classify(raw *RawOutput, req Request, origin Origin, now time.Time) *Result {
	conf := clamp01(raw.Confidence)

	switch {
	case origin == ByFallback:
		if conf > fallbackConfidenceCap {
			conf = fallbackConfidenceCap
		}
	case req.Mode == ModeReal:
		if conf < realEngineConfidenceFloor {
			conf = realEngineConfidenceFloor
		}
	default:
		if conf > simEngineConfidenceCap {
			conf = simEngineConfidenceCap
		}
	}

	return &Result{
		RequestID:  req.ID,
		SourceMode: req.Mode,
		Confidence: conf,
		Recommendation: Recommendation{
			Pair:         raw.Pair,
			Direction:    raw.Direction,
			SizeFraction: raw.SizeFraction,
			Amount:       raw.Amount,
		},
		Narrative:   raw.Narrative,
		GeneratedBy: origin,
		GeneratedAt: now.UTC(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
