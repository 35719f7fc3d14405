package log

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/weaveworks/common/logging"
)

var (
	Logger = log.NewNopLogger()
)

type Config struct {
	LogFormat logging.Format `yaml:"log_format"`
	LogLevel  logging.Level  `yaml:"log_level"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.LogFormat.RegisterFlags(f)
	c.LogLevel.RegisterFlags(f)
}

// InitLogger sets the package level Logger and returns it.
func InitLogger(cfg *Config) log.Logger {
	l := newBasicLogger(os.Stderr, cfg.LogFormat)

	Logger = level.NewFilter(log.With(l, "caller", log.Caller(5)), cfg.LogLevel.Gokit)
	return Logger
}

func newBasicLogger(w io.Writer, format logging.Format) log.Logger {
	var logger log.Logger
	if format.String() == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

// WithRun scopes a logger to a single workflow run.
func WithRun(l log.Logger, recordID, runID string) log.Logger {
	return log.With(l, "record_id", recordID, "run_id", runID)
}

func CheckFatal(location string, err error) {
	if err != nil {
		logger := level.Error(Logger)
		if location != "" {
			logger = log.With(logger, "msg", "error "+location)
		}

		_ = logger.Log("err", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
