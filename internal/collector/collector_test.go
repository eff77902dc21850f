package collector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"PriceLakehouse/internal/collector"
	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

func oneDay(field string, v float64) *frame.Raw {
	return &frame.Raw{
		IndexName: "Date",
		Index:     []time.Time{time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)},
		Columns:   []frame.Column{{Label: frame.Atomic(field), Values: []frame.Cell{frame.Num(v)}}},
	}
}

func TestExtract_PartialFailure(t *testing.T) {
	t.Parallel()

	// Arrange: AAPL has generated bars, BADSYM raises
	p := &collector.MockProvider{
		Price:  150,
		Errors: map[string]error{"BADSYM": errors.New("symbol may be delisted")},
	}
	c := collector.NewCollector(p)

	// Act
	ds, results := c.Extract(t.Context(), []string{"AAPL", "BADSYM"}, model.Incremental(feb20, 2))

	// Assert: only AAPL rows, BADSYM reported as failed
	require.False(t, ds.Empty())
	assert.Equal(t, []string{"AAPL"}, ds.Symbols())
	for _, r := range ds.Rows {
		assert.Equal(t, *r.Close, *r.AdjClose)
	}
	assert.Equal(t, []string{"AAPL", "BADSYM"}, p.Calls())
	assert.Equal(t, []string{"AAPL"}, collector.Succeeded(results))
	assert.Equal(t, []string{"BADSYM"}, collector.Failures(results))
	assert.ErrorContains(t, collector.FailureError(results), "BADSYM")
}

func TestExtract_PreservesSymbolOrder(t *testing.T) {
	t.Parallel()

	p := &collector.MockProvider{Frames: map[string]*frame.Raw{
		"TSLA": oneDay("Close", 200),
		"AAPL": oneDay("Close", 150),
		"MSFT": oneDay("Close", 400),
	}}
	ds, _ := collector.NewCollector(p).Extract(t.Context(), []string{"TSLA", "AAPL", "MSFT"}, model.Incremental(feb20, 2))

	assert.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, ds.Symbols())
	assert.Equal(t, 3, ds.Len())
}

func TestExtract_NoSymbolsSkipsProvider(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	p := NewMockProvider(ctrl)
	p.EXPECT().History(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	ds, results := collector.NewCollector(p).Extract(t.Context(), nil, model.Incremental(feb20, 2))
	assert.True(t, ds.Empty())
	assert.Empty(t, results)
}

func TestExtract_AllFailOrEmpty(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	p := NewMockProvider(ctrl)
	p.EXPECT().Name().Return("mockgen").AnyTimes()
	p.EXPECT().History(gomock.Any(), "AAPL", gomock.Any()).Return(&frame.Raw{IndexName: "Date"}, nil)
	p.EXPECT().History(gomock.Any(), "MSFT", gomock.Any()).Return(nil, errors.New("timeout"))
	p.EXPECT().History(gomock.Any(), "TSLA", gomock.Any()).Return(oneDay("Dividends", 0.24), nil)

	ds, results := collector.NewCollector(p).Extract(t.Context(), []string{"AAPL", "MSFT", "TSLA"}, model.Incremental(feb20, 2))

	assert.True(t, ds.Empty())
	require.Len(t, results, 3)
	assert.True(t, results[0].Empty())
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.ErrorContains(t, results[1].Err, "mockgen history")
	assert.True(t, results[2].Empty(), "a frame without price columns yields no rows")
	assert.Empty(t, collector.Succeeded(results))
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	p := &collector.MockProvider{Price: 10}
	ds, results := collector.NewCollector(p).Extract(ctx, []string{"AAPL", "MSFT"}, model.Incremental(feb20, 2))

	assert.True(t, ds.Empty())
	assert.Equal(t, []string{"AAPL", "MSFT"}, collector.Failures(results))
	assert.Empty(t, p.Calls())
}

func TestFetch_MisalignedFrameIsIsolated(t *testing.T) {
	t.Parallel()

	bad := oneDay("Close", 1)
	bad.Columns[0].Values = nil
	p := &collector.MockProvider{Frames: map[string]*frame.Raw{"AAPL": bad}}

	res := collector.NewCollector(p).Fetch(t.Context(), "AAPL", model.Incremental(feb20, 2))
	assert.True(t, res.Failed())
	assert.ErrorContains(t, res.Err, "normalize")
}

func TestMockProvider_BackfillGeneratesWeekdays(t *testing.T) {
	t.Parallel()

	p := &collector.MockProvider{
		Price: 100,
		Now:   func() time.Time { return time.Date(2026, time.February, 23, 12, 0, 0, 0, time.UTC) },
	}
	raw, err := p.History(t.Context(), "AAPL", model.Backfill(model.Period5d))
	require.NoError(t, err)
	// 2026-02-18 .. 2026-02-23 spans Wed-Mon: four weekdays
	assert.Equal(t, 4, raw.Len())
	for _, ts := range raw.Index {
		assert.NotContains(t, []time.Weekday{time.Saturday, time.Sunday}, ts.Weekday())
	}
}
