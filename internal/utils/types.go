package utils

// ProgressEvent is sent by download workers for every block persisted to
// disk. Bytes may be negative when a worker discards data and restarts.
type ProgressEvent struct {
	Chunk int   // chunk index, 0 for single-stream downloads
	Bytes int64 // bytes added since the previous event
	Total int64 // length of the chunk's byte range, 0 when unknown
}
