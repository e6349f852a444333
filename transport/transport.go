/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package transport

import (
	"crypto/tls"
	"crypto/x509"
	"io"

	"github.com/aether-im/aether/transport/compress"
	"github.com/aether-im/aether/xmpp"
)

// Type represents a stream transport type.
type Type int

const (
	// Socket represents a socket transport type.
	Socket Type = iota + 1

	// WebSocket represents a websocket transport type.
	WebSocket
)

// String returns Type string representation.
func (tt Type) String() string {
	switch tt {
	case Socket:
		return "socket"
	case WebSocket:
		return "websocket"
	}
	return ""
}

// ChannelBindingMechanism represents a scram channel binding mechanism.
type ChannelBindingMechanism int

const (
	// TLSUnique represents 'tls-unique' channel binding mechanism.
	TLSUnique ChannelBindingMechanism = iota
)

// Transport represents a stream transport mechanism.
type Transport interface {
	io.ReadCloser

	// Type returns transport type value.
	Type() Type

	// WriteString writes a raw string to the transport.
	WriteString(s string) error

	// WriteElement writes an XML element to the transport.
	WriteElement(elem xmpp.XElement, includeClosing bool) error

	// IsSecured returns whether or not the transport
	// channel has been secured.
	IsSecured() bool

	// StartTLS secures the transport channel.
	StartTLS(cfg *tls.Config)

	// EnableCompression activates a compression
	// mechanism on the transport.
	EnableCompression(level compress.Level)

	// ChannelBindingBytes returns current transport
	// channel binding bytes.
	ChannelBindingBytes(mechanism ChannelBindingMechanism) []byte

	// ConnectionState returns the TLS connection state of a secured
	// transport. ok is false when the channel is not secured.
	ConnectionState() (state tls.ConnectionState, ok bool)

	// PeerCertificates returns the certificate chain
	// presented by remote peer.
	PeerCertificates() []*x509.Certificate
}

type tlsStateQueryable interface {
	ConnectionState() tls.ConnectionState
}
