/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"crypto/tls"

	"github.com/aether-im/aether/xmpp"
	"github.com/pkg/errors"
)

const tlsNamespace = "urn:ietf:params:xml:ns:xmpp-tls"

type startTLSFeature struct {
	stm *Client
}

func newStartTLSFeature(stm *Client) *startTLSFeature {
	return &startTLSFeature{stm: stm}
}

func (f *startTLSFeature) Name() string      { return "starttls" }
func (f *startTLSFeature) Namespace() string { return tlsNamespace }
func (f *startTLSFeature) Priority() int     { return 100 }

func (f *startTLSFeature) Start(_ xmpp.XElement) error {
	f.stm.writeElement(xmpp.NewElementNamespace("starttls", tlsNamespace))
	return nil
}

func (f *startTLSFeature) ProcessElement(elem xmpp.XElement) (featureStatus, error) {
	if elem.Namespace() != tlsNamespace {
		return featurePending, nil
	}
	switch elem.Name() {
	case "proceed":
		f.stm.tr.StartTLS(&tls.Config{
			ServerName:         f.stm.cfg.JID.Domain(),
			InsecureSkipVerify: f.stm.cfg.SkipTLSVerify,
		})
		return featureReadyRestart, nil

	case "failure":
		return featurePending, errors.New("stream: tls negotiation failure")
	}
	return featurePending, nil
}
