package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	windows []model.Window
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, w model.Window) pipeline.Outcome {
	f.mu.Lock()
	f.windows = append(f.windows, w)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return pipeline.Outcome{State: pipeline.StateDone}
}

func TestRegister_InvalidCron(t *testing.T) {
	s := NewScheduler(t.Context(), &fakeRunner{}, 2)
	err := s.Register("not a cron")
	assert.ErrorContains(t, err, "register daily task")
}

func TestRegister_SecondsField(t *testing.T) {
	s := NewScheduler(t.Context(), &fakeRunner{}, 2)
	require.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestRunNow_IncrementalWindow(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(t.Context(), r, 2)
	s.Now = func() time.Time { return time.Date(2026, time.February, 23, 22, 30, 0, 0, time.UTC) }

	out, ran := s.RunNow()
	require.True(t, ran)
	assert.True(t, out.OK())

	require.Len(t, r.windows, 1)
	w := r.windows[0]
	assert.Equal(t, model.ModeIncremental, w.Mode)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.February, Day: 21}, w.Start)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.February, Day: 23}, w.End)
}

func TestRunNow_SkipsOverlap(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewScheduler(t.Context(), r, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ran := s.RunNow()
		assert.True(t, ran)
	}()
	<-r.entered

	_, ran := s.RunNow()
	assert.False(t, ran)

	close(r.block)
	<-done
	assert.Len(t, r.windows, 1)
}

func TestStop_WaitsForRunNow(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewScheduler(t.Context(), r, 2)
	s.Start()

	go s.RunNow()
	<-r.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(r.block)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the run finished")
	}
}
