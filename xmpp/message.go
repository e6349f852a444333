/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"fmt"
	"time"

	"github.com/aether-im/aether/xmpp/jid"
)

const (
	// NormalType represents a 'normal' message type.
	NormalType = "normal"

	// ChatType represents a 'chat' message type.
	ChatType = "chat"

	// GroupChatType represents a 'groupchat' message type.
	GroupChatType = "groupchat"

	// HeadlineType represents a 'headline' message type.
	HeadlineType = "headline"
)

// Message type represents a <message> element.
// All incoming <message> elements coming from the stream
// will automatically be converted to Message objects.
type Message struct {
	stanzaElement
}

// NewMessageType creates and returns a new Message element.
func NewMessageType(identifier string, messageType string) *Message {
	m := &Message{}
	m.SetName(MessageName)
	m.SetID(identifier)
	m.SetType(messageType)
	return m
}

// NewMessageFromElement creates a Message object from an XElement.
func NewMessageFromElement(e XElement, from *jid.JID, to *jid.JID) (*Message, error) {
	if e.Name() != MessageName {
		return nil, fmt.Errorf("xmpp: wrong Message element name: %s", e.Name())
	}
	messageType := e.Type()
	if !isMessageType(messageType) {
		return nil, fmt.Errorf(`xmpp: invalid Message "type" attribute: %s`, messageType)
	}
	m := &Message{}
	m.copyFrom(e)
	m.SetFromJID(from)
	m.SetToJID(to)
	return m, nil
}

// IsNormal returns true if this is a 'normal' type Message.
func (m *Message) IsNormal() bool {
	return m.Type() == NormalType || len(m.Type()) == 0
}

// IsChat returns true if this is a 'chat' type Message.
func (m *Message) IsChat() bool {
	return m.Type() == ChatType
}

// IsGroupChat returns true if this is a 'groupchat' type Message.
func (m *Message) IsGroupChat() bool {
	return m.Type() == GroupChatType
}

// IsHeadline returns true if this is a 'headline' type Message.
func (m *Message) IsHeadline() bool {
	return m.Type() == HeadlineType
}

// Body returns message body text.
func (m *Message) Body() string {
	if b := m.Elements().Child("body"); b != nil {
		return b.Text()
	}
	return ""
}

// Subject returns message subject text.
func (m *Message) Subject() string {
	if s := m.Elements().Child("subject"); s != nil {
		return s.Text()
	}
	return ""
}

// Timestamp returns the message timestamp: the delayed delivery stamp when
// present, the given fallback instant otherwise.
func (m *Message) Timestamp(fallback time.Time) time.Time {
	if stamp, ok := DelayTimestamp(m); ok {
		return stamp
	}
	return fallback
}

func isMessageType(tp string) bool {
	switch tp {
	case "", ErrorType, NormalType, ChatType, GroupChatType, HeadlineType:
		return true
	}
	return false
}
