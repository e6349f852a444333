/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"encoding/base64"

	"github.com/aether-im/aether/xmpp"
	"github.com/pkg/errors"
	"mellium.im/sasl"
)

const saslNamespace = "urn:ietf:params:xml:ns:xmpp-sasl"

type saslFeature struct {
	stm    *Client
	client *sasl.Negotiator
}

func newSASLFeature(stm *Client) *saslFeature {
	return &saslFeature{stm: stm}
}

func (f *saslFeature) Name() string      { return "mechanisms" }
func (f *saslFeature) Namespace() string { return saslNamespace }
func (f *saslFeature) Priority() int     { return 200 }

func (f *saslFeature) Start(elem xmpp.XElement) error {
	var serverMechs []string
	for _, m := range elem.Elements().Children("mechanism") {
		serverMechs = append(serverMechs, m.Text())
	}
	tlsState, secured := f.stm.tr.ConnectionState()

	mech, ok := selectMechanism(serverMechs, secured)
	if !ok {
		return errors.New("stream: no supported auth mechanism offered")
	}
	opts := []sasl.Option{
		sasl.Credentials(func() ([]byte, []byte, []byte) {
			return []byte(f.stm.cfg.JID.Node()), []byte(f.stm.cfg.Password), nil
		}),
		sasl.RemoteMechanisms(serverMechs...),
	}
	if secured {
		opts = append(opts, sasl.TLSState(tlsState))
	}
	f.client = sasl.NewClient(mech, opts...)

	_, resp, err := f.client.Step(nil)
	if err != nil {
		return errors.Wrap(err, "stream: sasl initial step failed")
	}
	auth := xmpp.NewElementNamespace("auth", saslNamespace)
	auth.SetAttribute("mechanism", mech.Name)
	auth.SetText(encodeSASLPayload(resp))
	f.stm.writeElement(auth)
	return nil
}

func (f *saslFeature) ProcessElement(elem xmpp.XElement) (featureStatus, error) {
	if elem.Namespace() != saslNamespace {
		return featurePending, nil
	}
	switch elem.Name() {
	case "challenge":
		challenge, err := decodeSASLPayload(elem.Text())
		if err != nil {
			return featurePending, err
		}
		_, resp, err := f.client.Step(challenge)
		if err != nil {
			return featurePending, errors.Wrap(err, "stream: sasl challenge step failed")
		}
		response := xmpp.NewElementNamespace("response", saslNamespace)
		response.SetText(encodeSASLPayload(resp))
		f.stm.writeElement(response)
		return featurePending, nil

	case "success":
		// scram mechanisms verify the server signature carried here
		if data := elem.Text(); len(data) > 0 {
			payload, err := decodeSASLPayload(data)
			if err != nil {
				return featurePending, err
			}
			if _, _, err := f.client.Step(payload); err != nil {
				return featurePending, errors.Wrap(err, "stream: server signature verification failed")
			}
		}
		return featureReadyRestart, nil

	case "failure":
		return featurePending, errors.Errorf("stream: authentication failed: %s", saslFailureReason(elem))
	}
	return featurePending, nil
}

func selectMechanism(serverMechs []string, secured bool) (sasl.Mechanism, bool) {
	preferred := []sasl.Mechanism{
		sasl.ScramSha256Plus,
		sasl.ScramSha1Plus,
		sasl.ScramSha256,
		sasl.ScramSha1,
		sasl.Plain,
	}
	for _, m := range preferred {
		if !secured && (m.Name == sasl.Plain.Name || m.Name == sasl.ScramSha256Plus.Name || m.Name == sasl.ScramSha1Plus.Name) {
			continue
		}
		for _, sm := range serverMechs {
			if sm == m.Name {
				return m, true
			}
		}
	}
	return sasl.Mechanism{}, false
}

func encodeSASLPayload(p []byte) string {
	if len(p) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(p)
}

func decodeSASLPayload(s string) ([]byte, error) {
	if s == "=" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func saslFailureReason(elem xmpp.XElement) string {
	children := elem.Elements().All()
	if len(children) == 0 {
		return "unknown"
	}
	return children[0].Name()
}
