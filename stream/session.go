/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"github.com/aether-im/aether/xmpp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const sessionNamespace = "urn:ietf:params:xml:ns:xmpp-session"

type sessionFeature struct {
	stm   *Client
	reqID string
}

func newSessionFeature(stm *Client) *sessionFeature {
	return &sessionFeature{stm: stm}
}

func (f *sessionFeature) Name() string      { return "session" }
func (f *sessionFeature) Namespace() string { return sessionNamespace }
func (f *sessionFeature) Priority() int     { return 500 }

func (f *sessionFeature) Start(_ xmpp.XElement) error {
	f.reqID = uuid.New().String()

	iq := xmpp.NewIQType(f.reqID, xmpp.SetType)
	iq.AppendElement(xmpp.NewElementNamespace("session", sessionNamespace))
	f.stm.writeElement(iq)
	return nil
}

func (f *sessionFeature) ProcessElement(elem xmpp.XElement) (featureStatus, error) {
	if elem.Name() != xmpp.IQName || elem.ID() != f.reqID {
		return featurePending, nil
	}
	if elem.Type() == xmpp.ErrorType {
		se := xmpp.NewStanzaErrorFromStanza(elem)
		return featurePending, errors.Errorf("stream: session establishment failed: %s", se.Condition())
	}
	return featureReady, nil
}
