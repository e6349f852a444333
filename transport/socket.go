/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package transport

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"time"

	"github.com/aether-im/aether/transport/compress"
	"github.com/aether-im/aether/xmpp"
)

const socketBuffSize = 4096

type socketTransport struct {
	conn       net.Conn
	rw         io.ReadWriter
	br         *bufio.Reader
	bw         *bufio.Writer
	keepAlive  time.Duration
	compressed bool
}

// NewSocketTransport creates a socket class stream transport.
func NewSocketTransport(conn net.Conn, keepAlive time.Duration) Transport {
	s := &socketTransport{
		conn:      conn,
		rw:        conn,
		br:        bufio.NewReaderSize(conn, socketBuffSize),
		bw:        bufio.NewWriterSize(conn, socketBuffSize),
		keepAlive: keepAlive,
	}
	return s
}

func (s *socketTransport) Type() Type {
	return Socket
}

func (s *socketTransport) Read(p []byte) (n int, err error) {
	if s.keepAlive > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.keepAlive))
	}
	return s.br.Read(p)
}

func (s *socketTransport) Close() error {
	return s.conn.Close()
}

func (s *socketTransport) WriteString(str string) error {
	defer func() { _ = s.bw.Flush() }()
	_, err := io.WriteString(s.bw, str)
	return err
}

func (s *socketTransport) WriteElement(elem xmpp.XElement, includeClosing bool) error {
	defer func() { _ = s.bw.Flush() }()
	elem.ToXML(s.bw, includeClosing)
	return nil
}

func (s *socketTransport) IsSecured() bool {
	_, ok := s.conn.(*tls.Conn)
	return ok
}

func (s *socketTransport) StartTLS(cfg *tls.Config) {
	if _, ok := s.conn.(*tls.Conn); !ok {
		s.conn = tls.Client(s.conn, cfg)
		s.rw = s.conn
		s.bw.Reset(s.rw)
		s.br.Reset(s.rw)
	}
}

func (s *socketTransport) EnableCompression(level compress.Level) {
	if !s.compressed {
		s.rw = compress.NewZlibCompressor(s.rw, s.rw, level)
		s.bw.Reset(s.rw)
		s.br.Reset(s.rw)
		s.compressed = true
	}
}

func (s *socketTransport) ChannelBindingBytes(mechanism ChannelBindingMechanism) []byte {
	if tlsConn, ok := s.conn.(tlsStateQueryable); ok {
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

func (s *socketTransport) ConnectionState() (tls.ConnectionState, bool) {
	if tlsConn, ok := s.conn.(tlsStateQueryable); ok {
		return tlsConn.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

func (s *socketTransport) PeerCertificates() []*x509.Certificate {
	if tlsConn, ok := s.conn.(tlsStateQueryable); ok {
		st := tlsConn.ConnectionState()
		return st.PeerCertificates
	}
	return nil
}
