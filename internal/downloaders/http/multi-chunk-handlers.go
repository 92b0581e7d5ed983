package chunkhttp

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// FetchChunk downloads chunk's byte range into tempPath. With resume set
// an existing temp file is kept and only the missing tail is requested; a
// temp file already covering the range returns without any request.
func (d *Downloader) FetchChunk(ctx context.Context, rawURL string, chunk Chunk, tempPath string, retries int, resume bool) error {
	state := &ChunkState{Index: chunk.Index}
	if resume {
		if fileInfo, err := os.Stat(tempPath); err == nil {
			state.Persisted = fileInfo.Size()
			if chunk.Start+state.Persisted > chunk.End {
				d.logger.Debug().Str("op", "http/chunk").Int("chunk", chunk.Index).Msg("Chunk already complete")
				d.report(chunk.Index, chunk.Len(), chunk.Len())
				state.succeed()
				return nil
			}
		}
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !resume {
		flag |= os.O_TRUNC
		state.Persisted = 0
	}
	tempFile, err := os.OpenFile(tempPath, flag, 0644)
	if err != nil {
		return fmt.Errorf("opening chunk file: %w", err)
	}
	defer tempFile.Close()

	if state.Persisted > 0 {
		d.logger.Debug().Str("op", "http/chunk").Int("chunk", chunk.Index).Msgf("Resuming chunk from offset %d", state.Persisted)
		d.report(chunk.Index, state.Persisted, chunk.Len())
	}

	return d.retry(ctx, state, retries, func() error {
		return d.fetchRange(ctx, rawURL, chunk, tempFile, state)
	})
}

// fetchRange is one attempt: it re-reads the temp file length, requests
// the remaining bytes of the chunk and appends them.
func (d *Downloader) fetchRange(ctx context.Context, rawURL string, chunk Chunk, tempFile *os.File, state *ChunkState) error {
	fileInfo, err := tempFile.Stat()
	if err != nil {
		return fmt.Errorf("stat chunk file: %w", err)
	}
	state.Persisted = fileInfo.Size()
	startByte := chunk.Start + state.Persisted
	if startByte > chunk.End {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", startByte, chunk.End))
	req.Header.Set("Connection", "keep-alive")
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing range request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	remainingBytes := chunk.End - startByte + 1
	written, err := d.copyBody(tempFile, resp.Body, remainingBytes, chunk.Index, chunk.Len())
	state.Persisted += written
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if written != remainingBytes {
		return fmt.Errorf("size mismatch: expected %d remaining bytes, got %d", remainingBytes, written)
	}
	return nil
}
