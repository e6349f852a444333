/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package transport

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aether-im/aether/pool"
	"github.com/aether-im/aether/transport/compress"
	"github.com/aether-im/aether/xmpp"
	"github.com/gorilla/websocket"
)

var bufPool = pool.NewBufferPool()

// WebSocketConn represents a websocket connection interface.
type WebSocketConn interface {
	NextReader() (messageType int, r io.Reader, err error)
	NextWriter(messageType int) (io.WriteCloser, error)
	Close() error
	UnderlyingConn() net.Conn
	SetReadDeadline(t time.Time) error
}

type webSocketTransport struct {
	conn      WebSocketConn
	keepAlive time.Duration
}

// NewWebSocketTransport creates a websocket class stream transport.
// TLS and compression are negotiated at the websocket layer, so StartTLS
// and EnableCompression are no-ops here.
func NewWebSocketTransport(conn WebSocketConn, keepAlive time.Duration) Transport {
	wst := &webSocketTransport{
		conn:      conn,
		keepAlive: keepAlive,
	}
	return wst
}

func (w *webSocketTransport) Type() Type {
	return WebSocket
}

func (w *webSocketTransport) Read(p []byte) (n int, err error) {
	_, r, err := w.conn.NextReader()
	if err != nil {
		return 0, err
	}
	if w.keepAlive > 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.keepAlive))
	}
	return r.Read(p)
}

func (w *webSocketTransport) Close() error {
	return w.conn.Close()
}

func (w *webSocketTransport) WriteString(str string) error {
	nw, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	defer func() { _ = nw.Close() }()

	_, err = io.Copy(nw, strings.NewReader(str))
	return err
}

func (w *webSocketTransport) WriteElement(elem xmpp.XElement, includeClosing bool) error {
	nw, err := w.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	defer func() { _ = nw.Close() }()

	buf := bufPool.Get()
	defer bufPool.Put(buf)
	elem.ToXML(buf, includeClosing)

	_, err = nw.Write(buf.Bytes())
	return err
}

func (w *webSocketTransport) IsSecured() bool {
	_, ok := w.conn.UnderlyingConn().(tlsStateQueryable)
	return ok
}

func (w *webSocketTransport) StartTLS(_ *tls.Config) {
}

func (w *webSocketTransport) EnableCompression(_ compress.Level) {
}

func (w *webSocketTransport) ChannelBindingBytes(mechanism ChannelBindingMechanism) []byte {
	if tlsConn, ok := w.conn.UnderlyingConn().(tlsStateQueryable); ok {
		switch mechanism {
		case TLSUnique:
			st := tlsConn.ConnectionState()
			return st.TLSUnique
		default:
			break
		}
	}
	return nil
}

func (w *webSocketTransport) ConnectionState() (tls.ConnectionState, bool) {
	if tlsConn, ok := w.conn.UnderlyingConn().(tlsStateQueryable); ok {
		return tlsConn.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

func (w *webSocketTransport) PeerCertificates() []*x509.Certificate {
	if tlsConn, ok := w.conn.UnderlyingConn().(tlsStateQueryable); ok {
		st := tlsConn.ConnectionState()
		return st.PeerCertificates
	}
	return nil
}
