package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLakehouse/internal/recorder"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got sendMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "42", "")
	n.APIBase = srv.URL
	require.NoError(t, n.Send(t.Context(), "<b>hi</b>"))

	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
}

func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "x", "")
	n.APIBase = srv.URL
	err := n.Send(t.Context(), "hello")
	assert.ErrorContains(t, err, "chat not found")
}

func TestFormatRunReport(t *testing.T) {
	start := time.Date(2026, time.February, 23, 22, 30, 0, 0, time.UTC)

	ok := FormatRunReport(&recorder.RunEvent{
		RunID: "r1", State: "done", Partition: "2026-02-23",
		Window: "incremental [2026-02-21, 2026-02-23]", URI: "gs://lake/raw/2026-02-23/stock_prices.parquet",
		Rows: 6, Symbols: 3, FailedSymbols: 1, LoadedSymbols: 2, StartedAt: start, FinishedAt: start.Add(2500 * time.Millisecond),
	}, []string{"BADSYM"})
	assert.Contains(t, ok, "✅")
	assert.Contains(t, ok, "Rows: 6 from 2/3 symbols")
	assert.Contains(t, ok, "Failed symbols: BADSYM")
	assert.Contains(t, ok, "took 2.5s")
	assert.NotContains(t, ok, "Failed in state")
	assert.NotContains(t, ok, "No data")

	failed := FormatRunReport(&recorder.RunEvent{
		RunID: "r2", State: "failed", FailedAt: "stored", Error: "load job: <nil schema>",
		StartedAt: start, FinishedAt: start,
	}, nil)
	assert.Contains(t, failed, "❌")
	assert.Contains(t, failed, "Failed in state <b>stored</b>: load job: &lt;nil schema&gt;")
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	assert.NoError(t, n.Send(t.Context(), "ignored"))
}

func TestTelegramNotifier_OKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "x", "")
	n.APIBase = srv.URL
	assert.ErrorContains(t, n.Send(t.Context(), "<b>"), "can't parse entities")
}

func TestTelegramNotifier_TokenNotLeaked(t *testing.T) {
	n := NewTelegramNotifier("secret-token", "x", "")
	n.APIBase = "http://127.0.0.1:1"
	err := n.Send(t.Context(), "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "ab…", clip("abcdef", 3))
}

func TestFormatRunReport_EmptySymbolsAreNotCountedAsLoaded(t *testing.T) {
	start := time.Date(2026, time.February, 23, 22, 30, 0, 0, time.UTC)
	msg := FormatRunReport(&recorder.RunEvent{
		RunID: "r3", State: "done", Rows: 2, Symbols: 3, FailedSymbols: 1, LoadedSymbols: 1,
		StartedAt: start, FinishedAt: start,
	}, []string{"BADSYM"})
	assert.Contains(t, msg, "Rows: 2 from 1/3 symbols")
	assert.Contains(t, msg, "No data: 1 symbols")
}
