package utils

import (
	"regexp"
	"time"
)

const DefaultBufferSize = 1024 * 1024 // 1MB buffer
const ToolUserAgent = "chunkr/1.0"
const ManifestSuffix = ".assembly.yaml"

const (
	DefaultRetries          = 5
	DefaultParallel         = 1
	DefaultTimeout          = 3 * time.Minute
	DefaultKeepAliveTimeout = 90 * time.Second
	DefaultBackoffBase      = time.Second
	DefaultBackoffMax       = 60 * time.Second

	// Above this many connections the client enlarges socket buffers.
	HighThreadConnections = 8
)

var ChunkIDRegex = regexp.MustCompile(`\.part(\d+)$`)

// Local-only User-Agent list
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36 Edg/132.0.0.0",
	"curl/8.5.0",
	"Wget/1.21.4",
}
