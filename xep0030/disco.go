/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xep0030

import (
	"context"
	"sync"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/processor"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

const discoInfoNamespace = "http://jabber.org/protocol/disco#info"

const requestTimeout = time.Duration(60) * time.Second

// Identity represents a disco info entity identity.
type Identity struct {
	Category string
	Type     string
	Name     string
}

// Info holds the discovered identities and features of an entity.
type Info struct {
	Entity     *jid.JID
	Identities []Identity
	Features   []string
}

type requester interface {
	SendStanzaRequest(stanza *xmpp.IQ, timeout time.Duration, hnd processor.RequestHandler) string
}

// DiscoInfo represents a disco info client: it requests entity information
// on demand and keeps a per-entity cache of the responses.
type DiscoInfo struct {
	req   requester
	hooks *hook.Hooks

	mu    sync.RWMutex
	cache map[string]*Info
}

// New returns an initialized disco info client.
func New(req requester, hooks *hook.Hooks) *DiscoInfo {
	return &DiscoInfo{
		req:   req,
		hooks: hooks,
		cache: make(map[string]*Info),
	}
}

// HasInfo tells whether entity info is already cached.
func (d *DiscoInfo) HasInfo(entity *jid.JID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.cache[entity.String()]
	return ok
}

// Info returns the cached info of an entity, or nil when not yet discovered.
func (d *DiscoInfo) Info(entity *jid.JID) *Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache[entity.String()]
}

// RequestInfo sends a disco info request to an entity. The response is cached
// and announced through the disco info received hook.
func (d *DiscoInfo) RequestInfo(entity *jid.JID) {
	iq := xmpp.NewIQType("", xmpp.GetType)
	iq.SetTo(entity.String())
	iq.AppendElement(xmpp.NewElementNamespace("query", discoInfoNamespace))

	d.req.SendStanzaRequest(iq, requestTimeout, func(response xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
		if stanzaErr != nil {
			log.Debugf("xep0030: info request to %s failed: %v", entity, stanzaErr)
			d.runInfoReceivedHook(&hook.DiscoInfo{Entity: entity, Err: stanzaErr})
			return
		}
		d.processInfoResponse(entity, response)
	})
}

func (d *DiscoInfo) processInfoResponse(entity *jid.JID, response xmpp.Stanza) {
	query := response.Elements().ChildNamespace("query", discoInfoNamespace)
	if query == nil {
		return
	}
	info := &Info{Entity: entity}
	for _, identElem := range query.Elements().Children("identity") {
		info.Identities = append(info.Identities, Identity{
			Category: identElem.Attributes().Get("category"),
			Type:     identElem.Attributes().Get("type"),
			Name:     identElem.Attributes().Get("name"),
		})
	}
	for _, featureElem := range query.Elements().Children("feature") {
		info.Features = append(info.Features, featureElem.Attributes().Get("var"))
	}
	d.mu.Lock()
	d.cache[entity.String()] = info
	d.mu.Unlock()

	d.runInfoReceivedHook(&hook.DiscoInfo{Entity: entity})
}

func (d *DiscoInfo) runInfoReceivedHook(inf *hook.DiscoInfo) {
	_, err := d.hooks.Run(hook.DiscoInfoReceived, &hook.ExecutionContext{
		Info:    inf,
		Sender:  d,
		Context: context.Background(),
	})
	if err != nil {
		log.Errorf("xep0030: info received hook failed: %v", err)
	}
}
