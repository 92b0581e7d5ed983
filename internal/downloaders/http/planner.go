package chunkhttp

// Chunk is a byte range of the remote file; End is inclusive.
type Chunk struct {
	Index int
	Start int64
	End   int64
}

func (c Chunk) Len() int64 {
	return c.End - c.Start + 1
}

// Plan splits totalSize bytes into min(parallelism, totalSize) contiguous
// chunks. The last chunk absorbs the remainder of the division. A size of
// zero or less yields an empty plan.
func Plan(totalSize int64, parallelism int) []Chunk {
	if totalSize <= 0 {
		return nil
	}
	count := min(int64(max(parallelism, 1)), totalSize)
	chunkSize := totalSize / count
	plan := make([]Chunk, 0, count)
	for i := range count {
		start := i * chunkSize
		end := start + chunkSize - 1
		if i == count-1 {
			end = totalSize - 1
		}
		plan = append(plan, Chunk{Index: int(i), Start: start, End: end})
	}
	return plan
}
