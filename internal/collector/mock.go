package collector

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

// MockProvider returns controllable data for development and testing.
// Frames and Errors override the generated bars per symbol.
type MockProvider struct {
	Price  float64
	Frames map[string]*frame.Raw
	Errors map[string]error
	Now    func() time.Time

	mu    sync.Mutex
	calls []string
}

func (m *MockProvider) Name() string { return "mock" }

// Calls returns the symbols requested so far, in order.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockProvider) History(ctx context.Context, symbol string, w model.Window) (*frame.Raw, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if raw, ok := m.Frames[symbol]; ok {
		return raw, nil
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	start, end := w.Start, w.End
	if w.Mode == model.ModeBackfill {
		end = model.Today(now())
		var ok bool
		if start, ok = w.Period.Start(end); !ok {
			start = end.AddDays(-365)
		}
	}
	return generateMockBars(m.Price, start, end), nil
}

// generateMockBars builds weekday bars in [start, end] drifting around
// basePrice. There is no Adj Close column.
func generateMockBars(basePrice float64, start, end civil.Date) *frame.Raw {
	raw := &frame.Raw{IndexName: "Date"}
	var open, high, low, closes, volume []frame.Cell
	i := 0
	for d := start; !end.Before(d); d = d.AddDays(1) {
		t := d.In(time.UTC)
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%10-5)*0.001)
		raw.Index = append(raw.Index, t)
		open = append(open, frame.Num(p*0.999))
		high = append(high, frame.Num(p*1.005))
		low = append(low, frame.Num(p*0.995))
		closes = append(closes, frame.Num(p))
		volume = append(volume, frame.Num(1000000))
		i++
	}
	if len(raw.Index) == 0 {
		return raw
	}
	raw.Columns = []frame.Column{
		{Label: frame.Atomic("Open"), Values: open},
		{Label: frame.Atomic("High"), Values: high},
		{Label: frame.Atomic("Low"), Values: low},
		{Label: frame.Atomic("Close"), Values: closes},
		{Label: frame.Atomic("Volume"), Values: volume},
	}
	return raw
}
