package log

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/weaveworks/common/logging"
)

func TestNewBasicLoggerFormats(t *testing.T) {
	var fmtJSON logging.Format
	assert.NoError(t, fmtJSON.Set("json"))

	var buf bytes.Buffer
	l := newBasicLogger(&buf, fmtJSON)
	assert.NoError(t, l.Log("msg", "hello"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"ts":`)

	var fmtLogfmt logging.Format
	assert.NoError(t, fmtLogfmt.Set("logfmt"))

	buf.Reset()
	l = newBasicLogger(&buf, fmtLogfmt)
	assert.NoError(t, l.Log("msg", "hello"))
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	l := WithRun(log.NewLogfmtLogger(&buf), "rec-1", "run-1")
	assert.NoError(t, l.Log("msg", "x"))
	assert.Contains(t, buf.String(), "record_id=rec-1")
	assert.Contains(t, buf.String(), "run_id=run-1")
}
