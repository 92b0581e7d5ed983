package chunkhttp

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// FetchSingle streams the whole resource into outputPath. totalSize may be
// zero when the server did not report a length, in which case resuming is
// best effort: completeness is only known once the server answers.
func (d *Downloader) FetchSingle(ctx context.Context, rawURL, outputPath string, totalSize int64, retries int, resume bool) error {
	state := &ChunkState{Index: 0}
	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if resume {
		if fileInfo, err := os.Stat(outputPath); err == nil {
			state.Persisted = fileInfo.Size()
			if totalSize > 0 && state.Persisted >= totalSize {
				d.logger.Info().Str("op", "http/simple-downloader").Msgf("File %s is already fully downloaded", outputPath)
				d.report(0, state.Persisted, totalSize)
				state.succeed()
				return nil
			}
		}
	} else {
		flag |= os.O_TRUNC
	}

	outFile, err := os.OpenFile(outputPath, flag, 0644)
	if err != nil {
		return fmt.Errorf("error opening output file: %w", err)
	}
	defer outFile.Close()

	if state.Persisted > 0 {
		d.logger.Debug().Str("op", "http/simple-downloader").Msgf("Resuming download from offset %d", state.Persisted)
		d.report(0, state.Persisted, totalSize)
	}

	if err := d.retry(ctx, state, retries, func() error {
		return d.streamAttempt(ctx, rawURL, outFile, totalSize, state)
	}); err != nil {
		return err
	}
	if err := outFile.Sync(); err != nil {
		return fmt.Errorf("error syncing output file: %w", err)
	}
	return nil
}

func (d *Downloader) streamAttempt(ctx context.Context, rawURL string, outFile *os.File, totalSize int64, state *ChunkState) error {
	fileInfo, err := outFile.Stat()
	if err != nil {
		return fmt.Errorf("stat output file: %w", err)
	}
	offset := fileInfo.Size()
	state.Persisted = offset
	if totalSize > 0 && offset >= totalSize {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("error creating GET request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing GET request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if offset > 0 {
			d.notice("http/simple-downloader", "Server ignored the range request, restarting download from the beginning")
			if err := outFile.Truncate(0); err != nil {
				return fmt.Errorf("error truncating output file: %w", err)
			}
			d.report(0, -offset, totalSize)
			offset = 0
			state.Persisted = 0
		}
	case http.StatusRequestedRangeNotSatisfiable:
		if offset > 0 && totalSize == 0 {
			d.logger.Debug().Str("op", "http/simple-downloader").Msg("Nothing left to fetch beyond existing data")
			return nil
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	limit := int64(-1)
	if totalSize > 0 {
		limit = totalSize - offset
	}
	written, err := d.copyBody(outFile, resp.Body, limit, 0, totalSize)
	state.Persisted = offset + written
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if limit >= 0 && written != limit {
		return fmt.Errorf("size mismatch: expected %d remaining bytes, got %d", limit, written)
	}
	return nil
}
