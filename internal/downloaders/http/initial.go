package chunkhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tanq16/chunkr/internal/utils"
)

// Request describes one download. It is not modified by the Downloader.
type Request struct {
	URL         string
	OutputPath  string
	Retries     int
	Resume      bool
	Parallelism int
}

type RemoteFileInfo struct {
	Size          int64 // 0 when the server did not report a usable length
	SupportsRange bool
}

type Downloader struct {
	client   utils.HTTPDoer
	backoff  Backoff
	progress chan<- utils.ProgressEvent
	notify   func(string)
	logger   zerolog.Logger
}

type Option func(*Downloader)

func WithBackoff(base, max time.Duration) Option {
	return func(d *Downloader) {
		d.backoff = Backoff{Base: base, Max: max}
	}
}

// WithProgress sends a ProgressEvent for every block written. The channel
// must be drained by the caller for as long as a download runs.
func WithProgress(ch chan<- utils.ProgressEvent) Option {
	return func(d *Downloader) {
		d.progress = ch
	}
}

// WithNotify passes notices meant for the user, such as a fallback to a
// single stream, to fn. fn may be called from any download goroutine.
func WithNotify(fn func(string)) Option {
	return func(d *Downloader) {
		d.notify = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

func New(client utils.HTTPDoer, opts ...Option) *Downloader {
	d := &Downloader{
		client:  client,
		backoff: DefaultBackoff,
		logger:  utils.GetLogger("http"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Probe issues a HEAD request for rawURL and reports its size and whether
// the server accepts byte ranges.
func (d *Downloader) Probe(ctx context.Context, rawURL string) (RemoteFileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return RemoteFileInfo{}, &MetadataError{URL: rawURL, Err: err}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return RemoteFileInfo{}, &MetadataError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RemoteFileInfo{}, &MetadataError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	info := RemoteFileInfo{
		SupportsRange: strings.Contains(strings.ToLower(resp.Header.Get("Accept-Ranges")), "bytes"),
	}
	if size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && size > 0 {
		info.Size = size
	} else if resp.ContentLength > 0 {
		info.Size = resp.ContentLength
	}
	d.logger.Debug().Str("op", "http/probe").Int64("size", info.Size).Bool("ranges", info.SupportsRange).Msg("Probed remote file")
	return info, nil
}

// Download fetches req.URL into req.OutputPath. Servers that accept byte
// ranges and report a length are fetched in parallel chunks; everything
// else falls back to a single stream. Every returned error is a
// *DownloadError naming the failed phase.
func (d *Downloader) Download(ctx context.Context, req Request) error {
	dl := *d
	dl.logger = d.logger.With().Str("id", uuid.NewString()[:8]).Logger()

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
		return &DownloadError{Phase: PhaseIO, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	info, err := dl.Probe(ctx, req.URL)
	if err != nil {
		return &DownloadError{Phase: PhaseMetadata, Err: err}
	}

	parallelism := max(req.Parallelism, 1)
	if info.Size == 0 {
		dl.notice("http/download", "Could not determine file size")
	}
	if parallelism > 1 && !info.SupportsRange {
		dl.notice("http/download", "Server does not support range requests, parallel download disabled")
		parallelism = 1
	} else if parallelism > 1 && info.Size == 0 {
		dl.notice("http/download", "File size is unknown, parallel download disabled")
		parallelism = 1
	}

	if parallelism == 1 {
		dl.logger.Debug().Str("op", "http/download").Msgf("Single-stream download of %s", req.URL)
		if err := dl.FetchSingle(ctx, req.URL, req.OutputPath, info.Size, req.Retries, req.Resume); err != nil {
			var chunkErr *ChunkError
			if errors.As(err, &chunkErr) {
				return &DownloadError{Phase: PhaseTransfer, Err: err}
			}
			return &DownloadError{Phase: PhaseIO, Err: err}
		}
		dl.logger.Info().Str("op", "http/download").Msgf("Download complete: %s", req.OutputPath)
		return nil
	}

	dl.logger.Debug().Str("op", "http/download").Msgf("Parallel download of %s with %d connections", req.URL, parallelism)
	if err := dl.downloadParallel(ctx, req, info.Size, parallelism); err != nil {
		return err
	}
	dl.logger.Info().Str("op", "http/download").Msgf("Download complete: %s", req.OutputPath)
	return nil
}

// notice logs msg as a warning and hands it to the notify callback.
func (d *Downloader) notice(op, msg string) {
	d.logger.Warn().Str("op", op).Msg(msg)
	if d.notify != nil {
		d.notify(msg)
	}
}

func (d *Downloader) report(chunk int, n, total int64) {
	if d.progress == nil || n == 0 {
		return
	}
	d.progress <- utils.ProgressEvent{Chunk: chunk, Bytes: n, Total: total}
}
