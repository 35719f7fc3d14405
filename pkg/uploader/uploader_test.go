package uploader

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	failures int
	calls    int
}

func (s *flakyStore) Put(_ context.Context, _ []byte, name, _ string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("service unavailable")
	}
	return "mem://" + name, nil
}

func (s *flakyStore) Exists(context.Context, string) (bool, error) { return true, nil }
func (s *flakyStore) Create(context.Context, string) error         { return nil }

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Log(keyvals ...interface{}) error {
	var b strings.Builder
	_ = log.NewLogfmtLogger(&b).Log(keyvals...)
	l.mu.Lock()
	l.lines = append(l.lines, b.String())
	l.mu.Unlock()
	return nil
}

func (l *recordingLogger) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func newTestUploader(store *flakyStore, logger log.Logger) (*Uploader, *prometheus.Registry) {
	reg := prometheus.NewPedanticRegistry()
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Millisecond}
	return New(cfg, store, reg, logger), reg
}

func TestUploadSucceedsOnFifthAttempt(t *testing.T) {
	store := &flakyStore{failures: 4}
	logger := &recordingLogger{}
	u, _ := newTestUploader(store, logger)

	url, err := u.UploadWithRetry(context.Background(), []byte("pdf"), "ns/rec1/acme-ein-letter.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "mem://ns/rec1/acme-ein-letter.pdf", url)
	assert.Equal(t, 5, store.calls)
	assert.Equal(t, 4, logger.count("upload failed, retrying"))
	assert.Equal(t, float64(4), testutil.ToFloat64(u.m.retries))
	assert.Equal(t, float64(0), testutil.ToFloat64(u.m.failures))
}

func TestUploadFailsAfterFiveAttempts(t *testing.T) {
	store := &flakyStore{failures: 100}
	logger := &recordingLogger{}
	u, _ := newTestUploader(store, logger)

	_, err := u.UploadWithRetry(context.Background(), []byte("pdf"), "ns/rec1/acme-ein-letter.pdf", "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
	assert.Equal(t, 5, store.calls)
	assert.Equal(t, 4, logger.count("upload failed, retrying"))
	assert.Equal(t, 1, logger.count(`msg="upload failed" `))
	assert.Equal(t, 1, logger.count(" attempts=5"))
	assert.Equal(t, float64(1), testutil.ToFloat64(u.m.failures))
}

func TestUploadFirstAttempt(t *testing.T) {
	store := &flakyStore{}
	logger := &recordingLogger{}
	u, _ := newTestUploader(store, logger)

	_, err := u.UploadWithRetry(context.Background(), []byte("{}"), "ns/rec1/acme_data.json", "application/json")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 0, logger.count("retrying"))
}

func TestUploadStopsOnCancel(t *testing.T) {
	store := &flakyStore{failures: 100}
	reg := prometheus.NewPedanticRegistry()
	u := New(Config{MaxAttempts: 5, BaseDelay: time.Hour}, store, reg, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := u.UploadWithRetry(ctx, []byte("x"), "ns/rec1/x.pdf", "application/pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}

func TestBackoffConfigDefaults(t *testing.T) {
	cfg := Config{}.backoffConfig()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.MinBackoff)
	assert.Equal(t, 32*time.Second, cfg.MaxBackoff)
}
