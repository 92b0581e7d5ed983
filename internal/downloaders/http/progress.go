package chunkhttp

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanq16/chunkr/internal/utils"
	"golang.org/x/time/rate"
)

// progressWriter forwards writes to w and reports each block to the
// downloader's progress channel. Debug logging is limited to once per second.
type progressWriter struct {
	w       io.Writer
	d       *Downloader
	chunk   int
	total   int64
	written int64
	logger  zerolog.Logger
	every   rate.Sometimes
}

func newProgressWriter(w io.Writer, d *Downloader, chunk int, total int64) *progressWriter {
	return &progressWriter{
		w:      w,
		d:      d,
		chunk:  chunk,
		total:  total,
		logger: d.logger,
		every:  rate.Sometimes{Interval: time.Second},
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.written += int64(n)
		pw.d.report(pw.chunk, int64(n), pw.total)
		pw.every.Do(func() {
			pw.logger.Debug().Str("op", "http/progress").Int("chunk", pw.chunk).
				Int64("written", pw.written).Int64("total", pw.total).Msg("Transferring")
		})
	}
	return n, err
}

// copyBody streams body into dst. A negative limit copies until EOF.
func (d *Downloader) copyBody(dst io.Writer, body io.Reader, limit int64, chunk int, total int64) (int64, error) {
	if limit >= 0 {
		body = io.LimitReader(body, limit)
	}
	buffer := make([]byte, utils.DefaultBufferSize)
	return io.CopyBuffer(newProgressWriter(dst, d, chunk, total), body, buffer)
}
