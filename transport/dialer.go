/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
)

// Dialer establishes outgoing stream transports. Repeated connection failures
// against the same endpoint trip an internal circuit breaker, so a flapping
// server is not hammered with reconnection attempts.
type Dialer struct {
	timeout   time.Duration
	keepAlive time.Duration
	cb        *gobreaker.CircuitBreaker
}

// NewDialer returns an initialized transport dialer.
func NewDialer(timeout, keepAlive time.Duration) *Dialer {
	return &Dialer{
		timeout:   timeout,
		keepAlive: keepAlive,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "dialer",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// DialSocket establishes a socket transport against a host address.
func (d *Dialer) DialSocket(ctx context.Context, address string) (Transport, error) {
	conn, err := d.cb.Execute(func() (interface{}, error) {
		nd := net.Dialer{Timeout: d.timeout}
		return nd.DialContext(ctx, "tcp", address)
	})
	if err != nil {
		return nil, err
	}
	return NewSocketTransport(conn.(net.Conn), d.keepAlive), nil
}

// DialWebSocket establishes a websocket transport against an URL.
func (d *Dialer) DialWebSocket(ctx context.Context, url string, tlsCfg *tls.Config) (Transport, error) {
	conn, err := d.cb.Execute(func() (interface{}, error) {
		wd := websocket.Dialer{
			HandshakeTimeout: d.timeout,
			TLSClientConfig:  tlsCfg,
			Subprotocols:     []string{"xmpp"},
		}
		c, _, err := wd.DialContext(ctx, url, nil)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	return NewWebSocketTransport(conn.(*websocket.Conn), d.keepAlive), nil
}
