package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/ValerySidorin/einfiler/pkg/queue/message"
	"github.com/ValerySidorin/einfiler/pkg/workflow"
	"github.com/go-kit/log"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeSubscriber struct {
	mu      sync.Mutex
	subject string
	action  func(*message.Case)
	subErr  error
	closed  bool
}

func (s *fakeSubscriber) Sub(subject string, action func(*message.Case)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.action = action
	return s.subErr
}

func (s *fakeSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscriber) deliver(id string) {
	s.mu.Lock()
	action := s.action
	s.mu.Unlock()
	action(&message.Case{Record: caserecord.CaseRecord{RecordID: id, EntityType: "LLC"}})
}

type blockingRunner struct {
	release chan struct{}
	active  *atomic.Int32
	peak    *atomic.Int32
	mu      sync.Mutex
	ids     []string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		release: make(chan struct{}),
		active:  atomic.NewInt32(0),
		peak:    atomic.NewInt32(0),
	}
}

func (r *blockingRunner) Run(ctx context.Context, c caserecord.CaseRecord) workflow.Result {
	n := r.active.Inc()
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-r.release
	r.active.Dec()

	r.mu.Lock()
	r.ids = append(r.ids, c.RecordID)
	r.mu.Unlock()
	return workflow.Result{Success: c.RecordID != "bad", Identifier: c.RecordID}
}

func TestWorkerBoundsConcurrency(t *testing.T) {
	sub := &fakeSubscriber{}
	runner := newBlockingRunner()
	reg := prometheus.NewRegistry()
	w := New(Config{Concurrency: 2, RunTimeout: time.Minute}, runner, sub, "einfiler.cases", reg, log.NewNopLogger())

	require.NoError(t, services.StartAndAwaitRunning(context.Background(), w))
	assert.Equal(t, "einfiler.cases", sub.subject)

	delivered := make(chan struct{})
	go func() {
		for _, id := range []string{"a", "b", "c", "bad"} {
			sub.deliver(id)
		}
		close(delivered)
	}()

	require.Eventually(t, func() bool { return w.InFlight() == 2 }, time.Second, 5*time.Millisecond)
	close(runner.release)
	<-delivered

	require.NoError(t, services.StopAndAwaitTerminated(context.Background(), w))

	assert.True(t, sub.closed)
	assert.Equal(t, int32(2), runner.peak.Load())
	assert.ElementsMatch(t, []string{"a", "b", "c", "bad"}, runner.ids)
	assert.Equal(t, 0, w.InFlight())
	assert.Equal(t, 3.0, testutil.ToFloat64(w.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.runs.WithLabelValues("failure")))
}

func TestWorkerRejectsCasesWhileStopping(t *testing.T) {
	sub := &fakeSubscriber{}
	runner := newBlockingRunner()
	close(runner.release)
	w := New(Config{Concurrency: 1}, runner, sub, "einfiler.cases", prometheus.NewRegistry(), log.NewNopLogger())

	require.NoError(t, services.StartAndAwaitRunning(context.Background(), w))
	require.NoError(t, services.StopAndAwaitTerminated(context.Background(), w))

	sub.deliver("late")
	assert.Empty(t, runner.ids)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.runs.WithLabelValues("rejected")))
}

func TestWorkerStopRacesDeliveries(t *testing.T) {
	sub := &fakeSubscriber{}
	runner := newBlockingRunner()
	close(runner.release)
	w := New(Config{Concurrency: 2}, runner, sub, "einfiler.cases", prometheus.NewRegistry(), log.NewNopLogger())
	require.NoError(t, services.StartAndAwaitRunning(context.Background(), w))

	const cases = 50
	var wg sync.WaitGroup
	for i := 0; i < cases; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.deliver("c")
		}()
	}

	require.NoError(t, services.StopAndAwaitTerminated(context.Background(), w))
	runner.mu.Lock()
	ranBeforeStop := len(runner.ids)
	runner.mu.Unlock()
	wg.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, ranBeforeStop, len(runner.ids), "a case ran after stop returned")
	assert.Equal(t, 0, w.InFlight())

	done := testutil.ToFloat64(w.runs.WithLabelValues("success"))
	rejected := testutil.ToFloat64(w.runs.WithLabelValues("rejected"))
	assert.Equal(t, float64(cases), done+rejected)
	assert.Equal(t, float64(len(runner.ids)), done)
}

func TestWorkerFailsWhenSubscribeFails(t *testing.T) {
	sub := &fakeSubscriber{subErr: errors.New("nats down")}
	w := New(Config{}, newBlockingRunner(), sub, "einfiler.cases", prometheus.NewRegistry(), log.NewNopLogger())

	err := services.StartAndAwaitRunning(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, w.FailureCase().Error(), "nats down")
}
