package output

import (
	"fmt"
	"time"
)

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats the average rate of bytes over elapsed seconds
func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return FormatBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

// FormatETA estimates the time left at the average rate so far. It
// returns "--" while the rate or the total is unknown.
func FormatETA(done, total int64, elapsed time.Duration) string {
	if done <= 0 || total <= 0 || elapsed <= 0 || done >= total {
		return "--"
	}
	rate := float64(done) / elapsed.Seconds()
	left := time.Duration(float64(total-done) / rate * float64(time.Second))
	return left.Round(time.Second).String()
}
