package telegram

import (
	"net"
	"net/http"
	"time"
)

const (
	dialTimeout       = 5 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	keepAliveInterval = 30 * time.Second
	// Long polls hold the response open for the poll timeout, so the client
	// deadline must exceed it.
	clientTimeoutSlack = 20 * time.Second
)

// BuildHTTPClient returns the Bot API client. It does not retry; outbound
// calls are retried by the sender executor.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   pollTimeout + clientTimeoutSlack,
		Transport: transport,
	}
}
