// Package socks builds SOCKS5-proxied dialers and HTTP clients.
package socks

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Dialer returns a dial function routed through the SOCKS5 proxy at addr.
func Dialer(addr string) (DialFunc, error) {
	d, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer %s: %w", addr, err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// HTTPClient returns a client whose connections go through the SOCKS5 proxy
// at addr. An empty addr yields a direct client.
func HTTPClient(addr string, timeout time.Duration) (*http.Client, error) {
	if addr == "" {
		return &http.Client{Timeout: timeout}, nil
	}
	dial, err := Dialer(addr)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   timeout,
	}, nil
}
