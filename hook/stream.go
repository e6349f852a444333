/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package hook

import (
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

// Stream hooks.
const (
	// StreamConnected hook runs when the underlying transport is established.
	StreamConnected = "stream.connected"

	// StreamStateChanged hook runs every time the stream transitions
	// to a new negotiation state.
	StreamStateChanged = "stream.state_changed"

	// StreamElementReceived hook runs when a stream level XML element is received.
	StreamElementReceived = "stream.element_received"

	// StreamElementSent hook runs after a stream level XML element is sent.
	StreamElementSent = "stream.element_sent"

	// StreamOnline hook runs when stream negotiation completes and
	// stanzas may start flowing.
	StreamOnline = "stream.online"

	// StreamClosed hook runs when the stream is orderly closed,
	// either locally or by the peer.
	StreamClosed = "stream.closed"

	// StreamAborted hook runs when the stream is torn down due to an error.
	StreamAborted = "stream.aborted"
)

// StreamInfo contains all information associated to a stream event.
type StreamInfo struct {
	// ID is the stream identifier.
	ID string

	// JID represents the stream JID, once bound.
	JID *jid.JID

	// State is the stream state at the time the event was posted.
	State string

	// Element is the event associated XML element.
	Element xmpp.XElement

	// Err is the event associated error, if any.
	Err error
}

// Presence hooks.
const (
	// OwnPresenceUpdated hook runs whenever the client broadcast presence changes.
	OwnPresenceUpdated = "presence.own_updated"
)

// PresenceInfo contains all information associated to a presence event.
type PresenceInfo struct {
	// Presence is the event associated presence element.
	Presence *xmpp.Presence
}
