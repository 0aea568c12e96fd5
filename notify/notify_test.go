package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/advisor/inference"
	"github.com/quantfx/advisor/market"
)

func sampleResult(dir inference.Direction) *inference.Result {
	return &inference.Result{
		RequestID:  "real-01ABC",
		SourceMode: inference.ModeReal,
		Confidence: 0.92,
		Recommendation: inference.Recommendation{
			Pair:         market.USDJPY,
			Direction:    dir,
			SizeFraction: decimal.NewFromFloat(0.03),
			Amount:       decimal.NewFromInt(30),
		},
		Narrative:   "model sees upside",
		GeneratedBy: inference.ByEngine,
	}
}

func TestSummaryBuy(t *testing.T) {
	t.Parallel()

	s := Summary(sampleResult(inference.Buy))
	assert.Contains(t, s, "REAL analysis")
	assert.Contains(t, s, "real-01ABC")
	assert.Contains(t, s, "BUY USD_JPY")
	assert.Contains(t, s, "3.0% of balance")
	assert.Contains(t, s, "30.00 units")
	assert.Contains(t, s, "Confidence: 92%")
	assert.Contains(t, s, "model sees upside")
}

func TestSummaryHoldOmitsSizing(t *testing.T) {
	t.Parallel()

	s := Summary(sampleResult(inference.Hold))
	assert.Contains(t, s, "HOLD")
	assert.NotContains(t, s, "of balance")
}

func TestWebhookPost(t *testing.T) {
	t.Parallel()

	var got webhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "#fx-alerts")
	require.NoError(t, w.Post(context.Background(), "hello"))
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "#fx-alerts", got.Channel)
}

func TestWebhookPostFile(t *testing.T) {
	t.Parallel()

	var got webhookFileMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	require.NoError(t, w.PostFile(context.Background(), "transcript attached", "transcript.txt", []byte("line one\n")))
	assert.Equal(t, "transcript.txt", got.Filename)
	assert.Equal(t, "line one\n", got.Content)
	assert.Empty(t, got.Channel)
}

func TestWebhookServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	err := w.Post(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLogNotifierNeverFails(t *testing.T) {
	t.Parallel()

	l := Log{}
	assert.NoError(t, l.Post(context.Background(), "x"))
	assert.NoError(t, l.PostFile(context.Background(), "x", "f.txt", []byte("y")))
}
