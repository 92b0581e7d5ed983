package chunkhttp

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testServer serves content, with byte-range support via http.ServeContent
// when ranges is set. fail, when non-nil, can reject a request with a 500
// before it is served; it is fixed at construction.
type testServer struct {
	*httptest.Server
	content  []byte
	ranges   bool
	heads    atomic.Int32
	gets     atomic.Int32
	fail     func(r *http.Request) bool
	failures atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newTestServer(t *testing.T, content []byte, ranges bool, fail func(r *http.Request) bool) *testServer {
	t.Helper()
	ts := &testServer{content: content, ranges: ranges, fail: fail}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		ts.heads.Add(1)
	} else {
		ts.gets.Add(1)
		n := ts.inFlight.Add(1)
		defer ts.inFlight.Add(-1)
		for {
			p := ts.peak.Load()
			if n <= p || ts.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if ts.fail != nil && ts.fail(r) {
		ts.failures.Add(1)
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}
	if ts.ranges {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(ts.content))
		return
	}
	// No range support: ignore Range and always send the full body.
	w.Header().Set("Content-Length", strconv.Itoa(len(ts.content)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(ts.content)
	}
}

// newDroppingServer serves content with range support, except that the
// first request gets headers for the full representation, cut bytes of
// body, and then a closed connection. Every Range header received is sent
// on the returned channel.
func newDroppingServer(t *testing.T, content []byte, cut int) (*httptest.Server, <-chan string) {
	t.Helper()
	ranges := make(chan string, 16)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
			return
		}
		ranges <- r.Header.Get("Range")
		if calls.Add(1) > 1 {
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		status := http.StatusOK
		if r.Header.Get("Range") != "" {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(content)-1, len(content)))
			status = http.StatusPartialContent
		}
		w.WriteHeader(status)
		w.Write(content[:cut])
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)
	return srv, ranges
}

func drain(ch <-chan string) []string {
	var out []string
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

func testContent(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((i*31 + i/251) % 256)
	}
	return b
}

func newTestDownloader(opts ...Option) *Downloader {
	base := []Option{
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithLogger(zerolog.Nop()),
	}
	return New(http.DefaultClient, append(base, opts...)...)
}
