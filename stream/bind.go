/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const bindNamespace = "urn:ietf:params:xml:ns:xmpp-bind"

type bindFeature struct {
	stm   *Client
	reqID string
}

func newBindFeature(stm *Client) *bindFeature {
	return &bindFeature{stm: stm}
}

func (f *bindFeature) Name() string      { return "bind" }
func (f *bindFeature) Namespace() string { return bindNamespace }
func (f *bindFeature) Priority() int     { return 400 }

func (f *bindFeature) Start(_ xmpp.XElement) error {
	f.reqID = uuid.New().String()

	iq := xmpp.NewIQType(f.reqID, xmpp.SetType)
	bindElem := xmpp.NewElementNamespace("bind", bindNamespace)
	if res := f.stm.cfg.JID.Resource(); len(res) > 0 {
		resElem := xmpp.NewElementName("resource")
		resElem.SetText(res)
		bindElem.AppendElement(resElem)
	}
	iq.AppendElement(bindElem)
	f.stm.writeElement(iq)
	return nil
}

func (f *bindFeature) ProcessElement(elem xmpp.XElement) (featureStatus, error) {
	if elem.Name() != xmpp.IQName || elem.ID() != f.reqID {
		return featurePending, nil
	}
	if elem.Type() == xmpp.ErrorType {
		se := xmpp.NewStanzaErrorFromStanza(elem)
		return featurePending, errors.Errorf("stream: resource binding failed: %s", se.Condition())
	}
	bindElem := elem.Elements().ChildNamespace("bind", bindNamespace)
	if bindElem == nil {
		return featurePending, errors.New("stream: malformed bind result")
	}
	jidElem := bindElem.Elements().Child("jid")
	if jidElem == nil {
		return featurePending, errors.New("stream: bind result missing jid")
	}
	boundJID, err := jid.NewWithString(jidElem.Text(), false)
	if err != nil {
		return featurePending, errors.Wrap(err, "stream: invalid bound jid")
	}
	f.stm.jd = boundJID
	return featureReady, nil
}
