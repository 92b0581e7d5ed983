package utils

import (
	"net"
	"net/http"
	"syscall"
	"time"
)

type HTTPClientConfig struct {
	Timeout   time.Duration
	KATimeout time.Duration
	UserAgent string
	Headers   map[string]string

	// LargeBuffers enlarges socket buffers for runs with many connections.
	LargeBuffers bool
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = DefaultKeepAliveTimeout
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	// Compression stays off so Content-Length and byte offsets describe
	// the bytes on the wire. Timeout bounds connecting and waiting for
	// headers only; a body transfer may take as long as it needs.
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	if cfg.LargeBuffers {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketBuffers(fd)
			})
		}
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
		MaxConnsPerHost:       0,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
		},
		config: cfg,
	}
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range c.config.Headers {
		// Range is owned by the downloader.
		if http.CanonicalHeaderKey(k) == "Range" {
			continue
		}
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}
