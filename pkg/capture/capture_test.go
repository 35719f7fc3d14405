package capture

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/artifact"
	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/ValerySidorin/einfiler/pkg/session/sessiontest"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type upload struct {
	name        string
	contentType string
	data        []byte
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []upload
	err     error
}

func (u *fakeUploader) UploadWithRetry(_ context.Context, data []byte, name, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, upload{name: name, contentType: contentType, data: data})
	return "https://store/" + name, nil
}

type fakeAssets struct {
	loads int
	err   error
}

func (a *fakeAssets) Load(context.Context) ([]byte, error) {
	a.loads++
	return []byte("/* bundle */"), a.err
}

type fakeDiagnoser struct{ calls int }

func (d *fakeDiagnoser) ExtractFromSession(context.Context, session.Session) string {
	d.calls++
	return "Invalid SSN"
}

func testConfig() Config {
	return Config{
		Namespace:       "filings",
		SettleDelay:     time.Millisecond,
		ReadyTimeout:    50 * time.Millisecond,
		FallbackTimeout: time.Second,
	}
}

// generatorSession answers the fallback scripts: the generator is absent until
// injected and returns uri once run.
func generatorSession(uri string, genErr error) *sessiontest.Fake {
	f := sessiontest.New()
	f.PrintErr = errors.New("printing not supported")
	f.Script = func(script string, out any) error {
		switch {
		case script == readyStateScript:
			*out.(*string) = "complete"
		case script == generatorPresentScript:
			*out.(*bool) = false
		case strings.Contains(script, "outputPdf"):
			if genErr != nil {
				return genErr
			}
			*out.(*string) = uri
		}
		return nil
	}
	return f
}

func TestCapturePrint(t *testing.T) {
	up := &fakeUploader{}
	p := New(testConfig(), up, &fakeAssets{}, nil, prometheus.NewRegistry(), log.NewNopLogger())
	f := sessiontest.New()

	a, ok := p.Capture(context.Background(), artifact.PurposeLetter, f, Subject{RecordID: "rec1", EntityName: "Acme LLC"})
	require.True(t, ok)
	require.NotNil(t, a)

	assert.Equal(t, "filings/rec1/acme-llc-ein-letter.pdf", a.Name)
	assert.Equal(t, artifact.VisibilityClient, a.Visibility)
	assert.Equal(t, "https://store/filings/rec1/acme-llc-ein-letter.pdf", a.URL)
	assert.Equal(t, "%PDF-1.4 fake", string(a.Data))

	require.Len(t, up.uploads, 1)
	assert.Equal(t, artifact.ContentTypePDF, up.uploads[0].contentType)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.captures.WithLabelValues(artifact.PurposeLetter, strategyPrint, resultSuccess)))
}

func TestCaptureFallback(t *testing.T) {
	up := &fakeUploader{}
	assets := &fakeAssets{}
	p := New(testConfig(), up, assets, nil, prometheus.NewRegistry(), log.NewNopLogger())

	uri := "data:application/pdf;filename=generated.pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-generated"))
	f := generatorSession(uri, nil)

	a, ok := p.Capture(context.Background(), artifact.PurposeFailure, f, Subject{RecordID: "rec1", EntityName: "Acme"})
	require.True(t, ok)
	assert.Equal(t, "%PDF-generated", string(a.Data))
	assert.Equal(t, artifact.VisibilityInternal, a.Visibility)
	assert.Equal(t, 1, assets.loads)

	var injected bool
	for _, c := range f.Calls() {
		if c.Op == "ExecuteScript" && c.Value == "/* bundle */" {
			injected = true
		}
	}
	assert.True(t, injected)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.captures.WithLabelValues(artifact.PurposeFailure, strategyPrint, resultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.captures.WithLabelValues(artifact.PurposeFailure, strategyFallback, resultSuccess)))
}

func TestCaptureFallbackFailureIsHard(t *testing.T) {
	tests := []struct {
		name   string
		sess   *sessiontest.Fake
		assets *fakeAssets
	}{
		{
			name:   "generator rejects",
			sess:   generatorSession("", errors.New("canvas tainted")),
			assets: &fakeAssets{},
		},
		{
			name:   "malformed uri",
			sess:   generatorSession("not a data uri", nil),
			assets: &fakeAssets{},
		},
		{
			name:   "bundle unavailable",
			sess:   generatorSession("", nil),
			assets: &fakeAssets{err: errors.New("offline")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{}
			p := New(testConfig(), up, tt.assets, nil, prometheus.NewRegistry(), log.NewNopLogger())

			a, ok := p.Capture(context.Background(), artifact.PurposeFailure, tt.sess, Subject{RecordID: "rec1"})
			assert.False(t, ok)
			assert.Nil(t, a)
			assert.Empty(t, up.uploads)
		})
	}
}

// slowGenerator blocks in the generator script until its context ends and
// reports how many scripts are still running on the session.
type slowGenerator struct {
	*sessiontest.Fake
	running atomic.Int32
}

func (s *slowGenerator) ExecuteScript(ctx context.Context, script string, out any) error {
	if !strings.Contains(script, "outputPdf") {
		return s.Fake.ExecuteScript(ctx, script, out)
	}
	s.running.Inc()
	defer s.running.Dec()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return nil
	}
}

func TestCaptureFallbackTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackTimeout = 20 * time.Millisecond

	sess := &slowGenerator{Fake: generatorSession("", nil)}
	up := &fakeUploader{}
	p := New(cfg, up, &fakeAssets{}, nil, prometheus.NewRegistry(), log.NewNopLogger())

	start := time.Now()
	a, ok := p.Capture(context.Background(), artifact.PurposeFailure, sess, Subject{RecordID: "rec1"})
	assert.False(t, ok)
	assert.Nil(t, a)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(0), sess.running.Load(), "generator script outlived the capture")
	assert.Empty(t, up.uploads)

	require.NoError(t, sess.Quit(context.Background()))
	assert.Equal(t, int32(0), sess.running.Load())
}

func TestCaptureUploadFailure(t *testing.T) {
	up := &fakeUploader{err: errors.New("store down")}
	p := New(testConfig(), up, &fakeAssets{}, nil, prometheus.NewRegistry(), log.NewNopLogger())

	a, ok := p.Capture(context.Background(), artifact.PurposeLetter, sessiontest.New(), Subject{RecordID: "rec1"})
	assert.False(t, ok)
	assert.Nil(t, a)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.captures.WithLabelValues(artifact.PurposeLetter, strategyPrint, resultFailure)))
}

func TestCaptureDiagnosesFailurePages(t *testing.T) {
	d := &fakeDiagnoser{}
	p := New(testConfig(), &fakeUploader{}, &fakeAssets{}, d, prometheus.NewRegistry(), log.NewNopLogger())

	_, ok := p.Capture(context.Background(), artifact.PurposeLetter, sessiontest.New(), Subject{RecordID: "rec1"})
	require.True(t, ok)
	assert.Equal(t, 0, d.calls)

	_, ok = p.Capture(context.Background(), artifact.PurposeFailure, sessiontest.New(), Subject{RecordID: "rec1"})
	require.True(t, ok)
	assert.Equal(t, 1, d.calls)
}

func TestCaptureCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	up := &fakeUploader{}
	p := New(testConfig(), up, &fakeAssets{}, nil, prometheus.NewRegistry(), log.NewNopLogger())
	_, ok := p.Capture(ctx, artifact.PurposeLetter, sessiontest.New(), Subject{RecordID: "rec1"})
	assert.False(t, ok)
	assert.Empty(t, up.uploads)
}

func TestDecodeDataURI(t *testing.T) {
	data, err := decodeDataURI("data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_, err = decodeDataURI("data:application/pdf,plain")
	assert.Error(t, err)
	_, err = decodeDataURI("data:application/pdf;base64,")
	assert.Error(t, err)
}
