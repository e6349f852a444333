/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/aether-im/aether/xmpp"
	"github.com/stretchr/testify/require"
)

func TestSocketTransport_WriteString(t *testing.T) {
	c1, c2 := net.Pipe()
	defer func() { _ = c2.Close() }()

	tr := NewSocketTransport(c1, 0)
	go func() {
		_ = tr.WriteString(`<presence to="room@muc.aether.im/alice"/>`)
	}()

	buf := make([]byte, 512)
	n, err := c2.Read(buf)
	require.Nil(t, err)
	require.Equal(t, `<presence to="room@muc.aether.im/alice"/>`, string(buf[:n]))
}

func TestSocketTransport_WriteElement(t *testing.T) {
	c1, c2 := net.Pipe()
	defer func() { _ = c2.Close() }()

	elem := xmpp.NewElementNamespace("open", "urn:ietf:params:xml:ns:xmpp-framing")
	tr := NewSocketTransport(c1, 0)
	go func() {
		_ = tr.WriteElement(elem, true)
	}()

	buf := make([]byte, 512)
	n, err := c2.Read(buf)
	require.Nil(t, err)
	require.Equal(t, elem.String(), string(buf[:n]))
}

func TestSocketTransport_Read(t *testing.T) {
	c1, c2 := net.Pipe()

	tr := NewSocketTransport(c1, time.Second)
	go func() {
		_, _ = c2.Write([]byte("<iq/>"))
	}()

	buf := make([]byte, 512)
	n, err := tr.Read(buf)
	require.Nil(t, err)
	require.Equal(t, "<iq/>", string(buf[:n]))

	_ = c2.Close()
	_, err = tr.Read(buf)
	require.NotNil(t, err)
}

func TestSocketTransport_Type(t *testing.T) {
	c1, _ := net.Pipe()
	tr := NewSocketTransport(c1, 0)
	require.Equal(t, Socket, tr.Type())
	require.Equal(t, "socket", tr.Type().String())
	require.False(t, tr.IsSecured())
	require.Nil(t, tr.ChannelBindingBytes(TLSUnique))
	require.Nil(t, tr.PeerCertificates())
}
