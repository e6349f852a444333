/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStanzaError_Element(t *testing.T) {
	elem := ErrForbidden.Element()
	require.Equal(t, "error", elem.Name())
	require.Equal(t, "403", elem.Attributes().Get("code"))
	require.Equal(t, "auth", elem.Attributes().Get("type"))
	require.NotNil(t, elem.Elements().ChildNamespace("forbidden", "urn:ietf:params:xml:ns:xmpp-stanzas"))
}

func TestStanzaError_FromStanza(t *testing.T) {
	presence := NewElementName("presence")
	presence.SetType(ErrorType)

	// no error child at all
	se := NewStanzaErrorFromStanza(presence)
	require.Equal(t, UndefinedConditionCondition, se.Condition())

	errElem := NewElementName("error")
	errElem.SetAttribute("code", "405")
	errElem.SetAttribute("type", "cancel")
	errElem.AppendElement(NewElementNamespace("not-allowed", "urn:ietf:params:xml:ns:xmpp-stanzas"))
	text := NewElementNamespace("text", "urn:ietf:params:xml:ns:xmpp-stanzas")
	text.SetText("moderators are not allowed to change their nickname")
	errElem.AppendElement(text)
	presence.AppendElement(errElem)

	se = NewStanzaErrorFromStanza(presence)
	require.Equal(t, 405, se.Code())
	require.Equal(t, "cancel", se.Type())
	require.Equal(t, NotAllowedCondition, se.Condition())
	require.Equal(t, "moderators are not allowed to change their nickname", se.Text())
	require.Equal(t, "not-allowed: moderators are not allowed to change their nickname", se.Error())
}

func TestStanzaError_ErrorElementFromElement(t *testing.T) {
	iq := NewElementName("iq")
	iq.SetID("iq1234")
	iq.SetType(GetType)
	iq.SetFrom("alice@aether.im/desktop")
	iq.SetTo("aether.im")

	errored := NewErrorElementFromElement(iq, ErrServiceUnavailable)
	require.Equal(t, ErrorType, errored.Type())
	require.Equal(t, "aether.im", errored.From())
	require.Equal(t, "alice@aether.im/desktop", errored.To())
	require.Equal(t, ServiceUnavailableCondition, NewStanzaErrorFromStanza(errored).Condition())
}
