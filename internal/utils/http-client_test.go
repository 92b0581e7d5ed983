package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_Headers(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{
		UserAgent: "tester/2.0",
		Headers:   map[string]string{"X-Token": "abc", "Accept": "*/*", "range": "bytes=0-0"},
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Range", "bytes=5-9")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	got := <-headers
	if ua := got.Get("User-Agent"); ua != "tester/2.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if v := got.Get("X-Token"); v != "abc" {
		t.Errorf("X-Token = %q", v)
	}
	if v := got.Get("Accept"); v != "*/*" {
		t.Errorf("Accept = %q", v)
	}
	if v := got.Get("Range"); v != "bytes=5-9" {
		t.Errorf("Range = %q, configured headers must not override it", v)
	}
}

func TestHTTPClient_DefaultUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, nil)
	resp, err := NewHTTPClient(HTTPClientConfig{}).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if ua := <-agents; ua != ToolUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, ToolUserAgent)
	}
}
