// Package filefetcher downloads static assets once and serves them from a local cache.
package filefetcher

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type Config struct {
	URL        string `yaml:"url"`
	Dir        string `yaml:"dir"`
	FileName   string `yaml:"file_name"`
	BufferSize int    `yaml:"buffer_size"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.URL, flagPrefix+"url", "https://cdnjs.cloudflare.com/ajax/libs/html2pdf.js/0.10.1/html2pdf.bundle.min.js", "Where to download the asset from.")
	f.StringVar(&c.Dir, flagPrefix+"dir", filepath.Join(os.TempDir(), "einfiler", "assets"), "Local cache directory.")
	f.StringVar(&c.FileName, flagPrefix+"file-name", "html2pdf.bundle.min.js", "File name inside the cache directory.")
	f.IntVar(&c.BufferSize, flagPrefix+"buffer-size", 32*1024, "Download buffer size in bytes.")
}

// FileFetcher keeps one asset on disk and in memory after the first successful load.
type FileFetcher struct {
	grabClient *grab.Client
	cfg        Config
	log        log.Logger

	mu   sync.Mutex
	data []byte
}

func NewClient(cfg Config, logger log.Logger) *FileFetcher {
	c := grab.NewClient()
	if cfg.BufferSize > 0 {
		c.BufferSize = cfg.BufferSize
	}

	return &FileFetcher{
		grabClient: c,
		cfg:        cfg,
		log:        log.With(logger, "component", "filefetcher"),
	}
}

func (f *FileFetcher) Path() string {
	return filepath.Join(f.cfg.Dir, f.cfg.FileName)
}

// Load returns the asset contents, downloading it on first use.
func (f *FileFetcher) Load(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.data != nil {
		return f.data, nil
	}

	path, err := f.Download(ctx)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "file fetcher read cached asset")
	}
	if len(data) == 0 {
		return nil, errors.Errorf("file fetcher: cached asset %s is empty", path)
	}

	f.data = data
	return data, nil
}

// Download fetches the asset into the cache directory unless it is already there.
func (f *FileFetcher) Download(ctx context.Context) (string, error) {
	path := f.Path()
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		return path, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrap(err, "file fetcher os.Stat")
	}

	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "file fetcher os.MkdirAll")
	}

	level.Info(f.log).Log("msg", "start downloading file", "url", f.cfg.URL, "path", path)
	req, err := grab.NewRequest(path, f.cfg.URL)
	if err != nil {
		return "", errors.Wrap(err, "file fetcher create request")
	}
	req = req.WithContext(ctx)

	t := time.NewTicker(1 * time.Second)
	defer t.Stop()

	resp := f.grabClient.Do(req)
Loop:
	for {
		select {
		case <-t.C:
			level.Debug(f.log).Log("msg", "download progress",
				"bytes", resp.BytesComplete(),
				"size", resp.Size(),
				"progress", 100*resp.Progress())
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "file fetcher download")
	}
	if resp.HTTPResponse != nil && resp.HTTPResponse.StatusCode >= 300 {
		_ = os.Remove(path)
		return "", errors.Errorf("file fetcher download: unexpected status %d", resp.HTTPResponse.StatusCode)
	}

	return resp.Filename, nil
}
