/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"github.com/aether-im/aether/transport/compress"
	"github.com/aether-im/aether/xmpp"
	"github.com/pkg/errors"
)

const (
	compressFeatureNamespace  = "http://jabber.org/features/compress"
	compressProtocolNamespace = "http://jabber.org/protocol/compress"
)

type compressFeature struct {
	stm *Client
}

func newCompressFeature(stm *Client) *compressFeature {
	return &compressFeature{stm: stm}
}

func (f *compressFeature) Name() string      { return "compression" }
func (f *compressFeature) Namespace() string { return compressFeatureNamespace }
func (f *compressFeature) Priority() int     { return 300 }

func (f *compressFeature) Start(elem xmpp.XElement) error {
	if f.stm.cfg.Compression == compress.NoCompression {
		// not enabled locally: skip without negotiating
		return f.stm.skipActiveFeature()
	}
	if !offersZlib(elem) {
		return f.stm.skipActiveFeature()
	}
	compressElem := xmpp.NewElementNamespace("compress", compressProtocolNamespace)
	method := xmpp.NewElementName("method")
	method.SetText("zlib")
	compressElem.AppendElement(method)
	f.stm.writeElement(compressElem)
	return nil
}

func (f *compressFeature) ProcessElement(elem xmpp.XElement) (featureStatus, error) {
	switch elem.Name() {
	case "compressed":
		f.stm.tr.EnableCompression(f.stm.cfg.Compression)
		return featureReadyRestart, nil

	case "failure":
		if elem.Namespace() == compressProtocolNamespace {
			return featurePending, errors.New("stream: compression negotiation failure")
		}
	}
	return featurePending, nil
}

func offersZlib(elem xmpp.XElement) bool {
	for _, m := range elem.Elements().Children("method") {
		if m.Text() == "zlib" {
			return true
		}
	}
	return false
}
