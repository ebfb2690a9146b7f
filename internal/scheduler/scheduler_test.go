package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls [][]int
	err   error
}

func (f *fakeRefresher) RefreshStations(_ context.Context, parameters []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, parameters)
	return f.err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePruner struct{ calls int }

func (p *fakePruner) Prune() int {
	p.calls++
	return 1
}

func TestRunOnce(t *testing.T) {
	r := &fakeRefresher{}
	p := &fakePruner{}
	s := New(Config{Refresher: r, Pruner: p, Parameters: []int{2, 5}, Logger: zerolog.Nop()})

	s.RunOnce(context.Background())
	assert.Equal(t, [][]int{{2, 5}}, r.calls)
	assert.Equal(t, 1, p.calls)

	r.err = errors.New("smhi unavailable")
	s.RunOnce(context.Background())
	assert.Equal(t, 2, r.count())
}

func TestStart_RunsImmediately(t *testing.T) {
	r := &fakeRefresher{}
	s := New(Config{Refresher: r, Parameters: []int{2}, Interval: time.Hour, Logger: zerolog.Nop()})

	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool { return r.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_NothingToSchedule(t *testing.T) {
	s := New(Config{Refresher: &fakeRefresher{}, Logger: zerolog.Nop()})
	require.NoError(t, s.Start())
	assert.Empty(t, s.scheduler.Jobs())
	s.Stop()
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, 6*time.Hour, s.interval)
	assert.Equal(t, 2*time.Minute, s.timeout)
}
