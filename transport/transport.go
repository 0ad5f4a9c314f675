// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Supported address schemes. An address without a scheme is TCP.
const (
	SchemeTCP       = "tcp"
	SchemeWebSocket = "ws"
)

// Endpoint is a parsed transport address.
type Endpoint struct {
	Scheme string
	Host   string // host:port
	Path   string // WebSocket only
}

func (e Endpoint) String() string {
	if e.Scheme == SchemeWebSocket {
		return "ws://" + e.Host + e.Path
	}
	return "tcp://" + e.Host
}

// ParseEndpoint accepts "host:port", "tcp://host:port" or "ws://host:port/path".
func ParseEndpoint(addr string) (Endpoint, error) {
	if addr == "" {
		return Endpoint{}, fmt.Errorf("empty address")
	}
	if !strings.Contains(addr, "://") {
		return Endpoint{Scheme: SchemeTCP, Host: addr}, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("address %q has no host", addr)
	}

	switch u.Scheme {
	case SchemeTCP:
		return Endpoint{Scheme: SchemeTCP, Host: u.Host}, nil
	case SchemeWebSocket:
		path := u.Path
		if path == "" {
			path = "/"
		}
		return Endpoint{Scheme: SchemeWebSocket, Host: u.Host, Path: path}, nil
	default:
		return Endpoint{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Listen binds the address and returns a listener yielding byte-stream
// connections.
func Listen(addr string) (net.Listener, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}

	switch ep.Scheme {
	case SchemeWebSocket:
		return listenWebSocket(ep)
	default:
		l, err := net.Listen("tcp", ep.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", ep, err)
		}
		return l, nil
	}
}

// Dial connects to the address. It blocks until connected, ctx is done, or
// the dial fails.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}

	switch ep.Scheme {
	case SchemeWebSocket:
		return dialWebSocket(ctx, ep)
	default:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", ep.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", ep, err)
		}
		return conn, nil
	}
}
