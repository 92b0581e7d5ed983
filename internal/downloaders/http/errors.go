package chunkhttp

import (
	"errors"
	"fmt"
)

var (
	ErrMetadata       = errors.New("metadata probe failed")
	ErrChunkExhausted = errors.New("chunk retries exhausted")
	ErrIO             = errors.New("filesystem error")
	ErrTransferFailed = errors.New("transfer failed")
	ErrPartialFailure = errors.New("one or more chunks failed")
	ErrAssemblyFailed = errors.New("assembly failed")
)

// MetadataError reports a failed probe request. StatusCode is zero when
// the request never produced a response.
type MetadataError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *MetadataError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("probing %s: server returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("probing %s: %v", e.URL, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

func (e *MetadataError) Is(target error) bool {
	return target == ErrMetadata
}

type ChunkKind int

const (
	// TransientIO is a single failed attempt; the retry loop absorbs it.
	TransientIO ChunkKind = iota
	// Exhausted is terminal: the chunk ran out of retries.
	Exhausted
)

func (k ChunkKind) String() string {
	switch k {
	case TransientIO:
		return "transient"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("ChunkKind(%d)", int(k))
	}
}

type ChunkError struct {
	Index    int
	Kind     ChunkKind
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d %s after %d attempt(s): %v", e.Index, e.Kind, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

func (e *ChunkError) Is(target error) bool {
	return target == ErrChunkExhausted && e.Kind == Exhausted
}

// Phase names the stage of a download that failed.
type Phase int

const (
	PhaseIO Phase = iota
	PhaseMetadata
	PhaseTransfer
	PhasePartialFailure
	PhaseAssembly
)

func (p Phase) String() string {
	switch p {
	case PhaseIO:
		return "io"
	case PhaseMetadata:
		return "metadata"
	case PhaseTransfer:
		return "transfer"
	case PhasePartialFailure:
		return "partial failure"
	case PhaseAssembly:
		return "assembly"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) sentinel() error {
	switch p {
	case PhaseIO:
		return ErrIO
	case PhaseMetadata:
		return ErrMetadata
	case PhaseTransfer:
		return ErrTransferFailed
	case PhasePartialFailure:
		return ErrPartialFailure
	case PhaseAssembly:
		return ErrAssemblyFailed
	}
	return nil
}

// DownloadError is the only error type returned by Downloader.Download.
// Chunks lists failed chunk indices in ascending order for PhasePartialFailure.
type DownloadError struct {
	Phase  Phase
	Chunks []int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Phase == PhasePartialFailure {
		return fmt.Sprintf("%s: chunks %v: %v", e.Phase, e.Chunks, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func (e *DownloadError) Is(target error) bool {
	s := e.Phase.sentinel()
	return s != nil && target == s
}
