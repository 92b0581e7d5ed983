package chunkhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tanq16/chunkr/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

func (d *Downloader) downloadParallel(ctx context.Context, req Request, fileSize int64, parallelism int) error {
	plan := Plan(fileSize, parallelism)
	manifestPath := utils.ManifestPath(req.OutputPath)
	manifest := NewManifest(manifestPath, req.URL, fileSize, len(plan))

	var previous *Manifest
	if req.Resume {
		loaded, err := LoadManifest(manifestPath)
		switch {
		case err == nil && manifest.Matches(loaded):
			previous = loaded
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			d.logger.Warn().Str("op", "http/multi-down").Err(err).Msg("Ignoring unreadable assembly manifest")
		}
	}

	existed, err := preallocate(req.OutputPath, fileSize, req.Resume)
	if err != nil {
		return &DownloadError{Phase: PhaseIO, Err: err}
	}
	if previous != nil && existed {
		manifest = previous
	} else if err := manifest.Remove(); err != nil {
		return &DownloadError{Phase: PhaseIO, Err: fmt.Errorf("removing stale assembly manifest: %w", err)}
	}

	sem := semaphore.NewWeighted(int64(parallelism))
	results := make([]error, len(plan))
	var g errgroup.Group
	for _, chunk := range plan {
		if manifest.IsCopied(chunk.Index) {
			d.logger.Debug().Str("op", "http/multi-down").Int("chunk", chunk.Index).Msg("Chunk already assembled")
			d.report(chunk.Index, chunk.Len(), chunk.Len())
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[chunk.Index] = err
				return err
			}
			defer sem.Release(1)
			tempPath := utils.ChunkPath(req.OutputPath, chunk.Index)
			results[chunk.Index] = d.FetchChunk(ctx, req.URL, chunk, tempPath, req.Retries, req.Resume)
			return nil
		})
	}
	// Errors are collected per chunk below; a failed chunk never stops the others.
	_ = g.Wait()

	var failed []int
	var errs []error
	for i, err := range results {
		if err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
			d.logger.Error().Str("op", "http/multi-down").Int("chunk", i).Err(err).Msg("Chunk failed")
		}
	}
	if len(failed) > 0 {
		return &DownloadError{Phase: PhasePartialFailure, Chunks: failed, Err: errors.Join(errs...)}
	}

	if err := Assemble(plan, req.OutputPath, manifest); err != nil {
		return &DownloadError{Phase: PhaseAssembly, Err: err}
	}
	return nil
}

// preallocate creates the output file (truncating it unless resuming) and
// sizes it to fileSize. It reports whether the file existed beforehand.
func preallocate(outputPath string, fileSize int64, resume bool) (bool, error) {
	_, statErr := os.Stat(outputPath)
	existed := statErr == nil
	flag := os.O_CREATE | os.O_WRONLY
	if !resume {
		flag |= os.O_TRUNC
	}
	outFile, err := os.OpenFile(outputPath, flag, 0644)
	if err != nil {
		return existed, fmt.Errorf("error opening output file: %w", err)
	}
	defer outFile.Close()
	if err := outFile.Truncate(fileSize); err != nil {
		return existed, fmt.Errorf("error pre-sizing output file: %w", err)
	}
	return existed, nil
}

// Assemble copies every chunk's temp file into outputPath at the chunk's
// offset, in index order, deleting each temp file once its copy is synced
// and recorded in manifest. A nil manifest disables the bookkeeping. The
// manifest is removed after the last chunk.
func Assemble(plan []Chunk, outputPath string, manifest *Manifest) error {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening output file: %w", err)
	}
	defer outFile.Close()

	for _, chunk := range plan {
		if manifest.IsCopied(chunk.Index) {
			continue
		}
		tempPath := utils.ChunkPath(outputPath, chunk.Index)
		if err := copyChunk(outFile, tempPath, chunk); err != nil {
			return fmt.Errorf("chunk %d: %w", chunk.Index, err)
		}
		if err := outFile.Sync(); err != nil {
			return fmt.Errorf("error syncing output file: %w", err)
		}
		if err := manifest.MarkCopied(chunk.Index); err != nil {
			return err
		}
		if err := os.Remove(tempPath); err != nil {
			return fmt.Errorf("error removing chunk file: %w", err)
		}
	}
	if err := manifest.Remove(); err != nil {
		return fmt.Errorf("error removing assembly manifest: %w", err)
	}
	return nil
}

func copyChunk(outFile *os.File, tempPath string, chunk Chunk) error {
	tempFile, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("error opening chunk file: %w", err)
	}
	defer tempFile.Close()

	fileInfo, err := tempFile.Stat()
	if err != nil {
		return fmt.Errorf("error reading chunk file: %w", err)
	}
	if fileInfo.Size() < chunk.Len() {
		return fmt.Errorf("chunk file holds %d bytes, expected %d", fileInfo.Size(), chunk.Len())
	}
	if _, err := outFile.Seek(chunk.Start, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking output file: %w", err)
	}
	if _, err := io.CopyN(outFile, tempFile, chunk.Len()); err != nil {
		return fmt.Errorf("error copying chunk: %w", err)
	}
	return nil
}
