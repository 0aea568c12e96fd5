// Package notify delivers human-readable pass outcomes to an external
// channel. Delivery failures never fail the pass that produced the result.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantfx/advisor/inference"
)

// Notifier posts messages and small file attachments.
type Notifier interface {
	Post(ctx context.Context, text string) error
	PostFile(ctx context.Context, text, filename string, contents []byte) error
}

// Log is a Notifier that writes to the structured log. It is the default
// when no webhook is configured and never fails.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Post(ctx context.Context, text string) error {
	l.logger().InfoContext(ctx, "notification", "text", text)
	return nil
}

func (l Log) PostFile(ctx context.Context, text, filename string, contents []byte) error {
	l.logger().InfoContext(ctx, "notification", "text", text, "file", filename, "bytes", len(contents))
	return nil
}

func (l Log) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Summary renders a result for posting.
func Summary(res *inference.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s analysis* (%s)\n", strings.ToUpper(string(res.SourceMode)), res.RequestID)
	fmt.Fprintf(&b, "Recommendation: %s %s", strings.ToUpper(string(res.Recommendation.Direction)), res.Recommendation.Pair)
	if res.Recommendation.Direction != inference.Hold {
		fmt.Fprintf(&b, " (%s%% of balance, %s units)",
			res.Recommendation.SizeFraction.Mul(hundred).StringFixed(1),
			res.Recommendation.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nConfidence: %.0f%%", res.Confidence*100)
	fmt.Fprintf(&b, "\nSource: %s", res.GeneratedBy)
	if res.Narrative != "" {
		fmt.Fprintf(&b, "\n\n%s", res.Narrative)
	}
	return b.String()
}
