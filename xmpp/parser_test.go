/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParser_ParseElement(t *testing.T) {
	docSrc := `<?xml version="1.0" encoding="UTF-8"?><a xmlns="im.aether" version="1.0">Hi!<b><c a="attr1">Lorem</c><c a="attr2">Ipsum</c></b></a>`
	p := NewParser(strings.NewReader(docSrc), DefaultMode, 0)

	elem, err := p.ParseElement()
	require.Nil(t, err)
	require.Nil(t, elem) // XML declaration

	elem, err = p.ParseElement()
	require.Nil(t, err)
	require.NotNil(t, elem)
	require.Equal(t, "a", elem.Name())
	require.Equal(t, "im.aether", elem.Namespace())
	require.Equal(t, "1.0", elem.Version())
	require.Equal(t, "Hi!", elem.Text())

	b := elem.Elements().Child("b")
	require.NotNil(t, b)
	cs := b.Elements().Children("c")
	require.Equal(t, 2, len(cs))
	require.Equal(t, "attr1", cs[0].Attributes().Get("a"))
	require.Equal(t, "Lorem", cs[0].Text())
	require.Equal(t, "attr2", cs[1].Attributes().Get("a"))
	require.Equal(t, "Ipsum", cs[1].Text())
}

func TestParser_ParseSeveralElements(t *testing.T) {
	docSrc := `<a/><b/><c/>`
	p := NewParser(strings.NewReader(docSrc), DefaultMode, 0)

	a, err := p.ParseElement()
	require.NotNil(t, a)
	require.Nil(t, err)
	b, err := p.ParseElement()
	require.NotNil(t, b)
	require.Nil(t, err)
	c, err := p.ParseElement()
	require.NotNil(t, c)
	require.Nil(t, err)
}

func TestParser_ParseSocketStream(t *testing.T) {
	openSrc := `<stream:stream xmlns:stream="http://etherx.jabber.org/streams" xmlns="jabber:client" version="1.0">`
	p := NewParser(strings.NewReader(openSrc), SocketStream, 0)

	elem, err := p.ParseElement()
	require.Nil(t, err)
	require.NotNil(t, elem)
	require.Equal(t, "stream:stream", elem.Name())
	require.Equal(t, "1.0", elem.Version())

	closeSrc := `</stream:stream>`
	p = NewParser(strings.NewReader(closeSrc), SocketStream, 0)
	elem, err = p.ParseElement()
	require.Nil(t, elem)
	require.Equal(t, ErrStreamClosedByPeer, err)
}

func TestParser_ParseWebSocketStream(t *testing.T) {
	closeSrc := `<close xmlns="urn:ietf:params:xml:ns:xmpp-framing"/>`
	p := NewParser(strings.NewReader(closeSrc), WebSocketStream, 0)
	elem, err := p.ParseElement()
	require.Nil(t, elem)
	require.Equal(t, ErrStreamClosedByPeer, err)
}

func TestParser_TooLargeStanza(t *testing.T) {
	docSrc := `<message to="room@muc.aether.im"><body>` + strings.Repeat("A", 256) + `</body></message>`
	p := NewParser(strings.NewReader(docSrc), DefaultMode, 64)

	elem, err := p.ParseElement()
	require.Nil(t, elem)
	require.Equal(t, ErrTooLargeStanza, err)
}

func TestParser_UnexpectedEndElement(t *testing.T) {
	docSrc := `<a><b></a></b>`
	p := NewParser(strings.NewReader(docSrc), DefaultMode, 0)

	elem, err := p.ParseElement()
	require.Nil(t, elem)
	require.NotNil(t, err)
}
