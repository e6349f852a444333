/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

// Package xmpp implements the generic XML element model shared by every
// protocol layer: mutable elements, typed stanzas and the incremental
// stream parser.
package xmpp

import (
	"fmt"
	"io"

	"github.com/aether-im/aether/pool"
	"github.com/aether-im/aether/xmpp/jid"
)

var bufPool = pool.NewBufferPool()

const (
	// IQName represents "iq" stanza name.
	IQName = "iq"

	// MessageName represents "message" stanza name.
	MessageName = "message"

	// PresenceName represents "presence" stanza name.
	PresenceName = "presence"
)

// ErrorType represents an 'error' stanza type.
const ErrorType = "error"

// XElement represents a generic XML node element.
type XElement interface {
	fmt.Stringer

	Name() string
	Attributes() AttributeSet
	Elements() ElementSet

	Text() string

	ID() string
	Namespace() string
	Language() string
	Version() string
	From() string
	To() string
	Type() string

	IsStanza() bool

	IsError() bool
	Error() XElement

	ToXML(w io.Writer, includeClosing bool)
}

// Stanza represents an XMPP stanza element: a top-level iq, presence or
// message unit with parsed addressing.
type Stanza interface {
	XElement
	FromJID() *jid.JID
	ToJID() *jid.JID
}
