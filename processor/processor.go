/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package processor

import (
	"sort"
	"sync"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/xmpp"
	"github.com/google/uuid"
)

// Direction tells which way a stanza is crossing the stream boundary.
type Direction int

const (
	// In matches stanzas received from the stream.
	In Direction = iota

	// Out matches stanzas about to be sent over the stream.
	Out
)

// Condition restricts the stanzas a handle is offered. Tag and the child
// requirements are combined with a logical AND; empty fields match anything.
type Condition struct {
	// Tag is the required top-level stanza name.
	Tag string

	// ChildName is the required child element name.
	ChildName string

	// ChildNamespace is the required child element namespace.
	ChildNamespace string
}

func (c *Condition) matches(stanza xmpp.Stanza) bool {
	if len(c.Tag) > 0 && stanza.Name() != c.Tag {
		return false
	}
	switch {
	case len(c.ChildName) > 0 && len(c.ChildNamespace) > 0:
		return stanza.Elements().ChildNamespace(c.ChildName, c.ChildNamespace) != nil
	case len(c.ChildName) > 0:
		return stanza.Elements().Child(c.ChildName) != nil
	case len(c.ChildNamespace) > 0:
		for _, child := range stanza.Elements().All() {
			if child.Namespace() == c.ChildNamespace {
				return true
			}
		}
		return false
	}
	return true
}

// Handler processes a matched stanza. Returning true accepts the stanza
// and stops further dispatch.
type Handler func(stanza xmpp.Stanza) bool

// RequestHandler resolves a tracked request exactly once: with the response
// stanza on success, or with a stanza error otherwise. Timeouts carry the
// remote-server-timeout condition.
type RequestHandler func(response xmpp.Stanza, stanzaErr *xmpp.StanzaError)

// Stream represents the processor view of a client stream.
type Stream interface {
	ID() string
	Hooks() *hook.Hooks
	IsOnline() bool
	SendElement(elem xmpp.XElement)
}

type stanzaHandle struct {
	id         int
	direction  Direction
	priority   int
	conditions []Condition
	handler    Handler
}

type pendingRequest struct {
	id      string
	handler RequestHandler
	timer   *time.Timer
}

// Processor dispatches the stanzas of a single stream: inbound and outbound
// stanzas are offered to registered handles in ascending priority order with
// at-most-one acceptance, and request stanzas are correlated with their
// asynchronous responses.
type Processor struct {
	stm Stream

	mu           sync.Mutex
	nextHandleID int
	handles      []*stanzaHandle
	pending      map[string]*pendingRequest
}

// New returns an initialized stanza processor bound to a stream.
func New(stm Stream) *Processor {
	p := &Processor{
		stm:     stm,
		pending: make(map[string]*pendingRequest),
	}
	hooks := stm.Hooks()
	hooks.AddHook(hook.StreamElementReceived, p.onElementReceived, hook.HighestPriority)
	hooks.AddHook(hook.StreamClosed, p.onStreamTeardown, hook.HighestPriority)
	hooks.AddHook(hook.StreamAborted, p.onStreamTeardown, hook.HighestPriority)
	return p
}

// InsertStanzaHandle registers a stanza handle and returns its identifier.
// A stanza matches the handle when at least one of its conditions matches.
func (p *Processor) InsertStanzaHandle(direction Direction, priority int, conditions []Condition, handler Handler) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextHandleID++
	p.handles = append(p.handles, &stanzaHandle{
		id:         p.nextHandleID,
		direction:  direction,
		priority:   priority,
		conditions: conditions,
		handler:    handler,
	})
	sort.SliceStable(p.handles, func(i, j int) bool {
		return p.handles[i].priority < p.handles[j].priority
	})
	return p.nextHandleID
}

// RemoveStanzaHandle unregisters a stanza handle. Removing an unknown
// identifier is a no-op.
func (p *Processor) RemoveStanzaHandle(handleID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, h := range p.handles {
		if h.id != handleID {
			continue
		}
		p.handles = append(p.handles[:i], p.handles[i+1:]...)
		return
	}
}

// SendStanzaOut offers a stanza to the outbound handles and, unless one of
// them accepts it, sends it over the stream.
func (p *Processor) SendStanzaOut(stanza xmpp.Stanza) {
	if p.dispatch(Out, stanza) {
		return
	}
	p.stm.SendElement(stanza)
}

// SendStanzaRequest transmits a request stanza and tracks its identifier
// until a matching response arrives or timeout elapses. The stanza identifier
// is assigned when empty. An empty identifier is returned when the stream is
// not online and the request couldn't be transmitted. hnd is guaranteed to be
// invoked at most once; it is never invoked after stream teardown.
func (p *Processor) SendStanzaRequest(stanza *xmpp.IQ, timeout time.Duration, hnd RequestHandler) string {
	if !p.stm.IsOnline() {
		log.Debugf("processor: dropped request on offline stream %s", p.stm.ID())
		return ""
	}
	reqID := stanza.ID()
	if len(reqID) == 0 {
		reqID = uuid.New().String()
		stanza.SetID(reqID)
	}
	req := &pendingRequest{
		id:      reqID,
		handler: hnd,
	}
	req.timer = time.AfterFunc(timeout, func() {
		p.resolveTimeout(reqID)
	})
	p.mu.Lock()
	p.pending[reqID] = req
	p.mu.Unlock()

	p.stm.SendElement(stanza)
	return reqID
}

// PendingRequestCount returns the number of unresolved tracked requests.
func (p *Processor) PendingRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Processor) onElementReceived(execCtx *hook.ExecutionContext) error {
	inf := execCtx.Info.(*hook.StreamInfo)
	stanza, ok := inf.Element.(xmpp.Stanza)
	if !ok {
		return nil
	}
	if p.resolvePending(stanza) {
		return hook.ErrStopped
	}
	if p.dispatch(In, stanza) {
		return hook.ErrStopped
	}
	return nil
}

func (p *Processor) onStreamTeardown(_ *hook.ExecutionContext) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]*pendingRequest)
	p.mu.Unlock()

	for _, req := range pending {
		req.timer.Stop()
	}
	if len(pending) > 0 {
		log.Debugf("processor: cancelled %d pending requests on stream %s teardown", len(pending), p.stm.ID())
	}
	return nil
}

func (p *Processor) dispatch(direction Direction, stanza xmpp.Stanza) bool {
	p.mu.Lock()
	handles := make([]*stanzaHandle, len(p.handles))
	copy(handles, p.handles)
	p.mu.Unlock()

	for _, h := range handles {
		if h.direction != direction || !handleMatches(h, stanza) {
			continue
		}
		if h.handler(stanza) {
			return true
		}
	}
	return false
}

// resolvePending resolves a tracked request with a matching result or error
// typed response. Resolution happens exactly once: the entry is removed
// before the handler is invoked and late responses find nothing to resolve.
func (p *Processor) resolvePending(stanza xmpp.Stanza) bool {
	iq, ok := stanza.(*xmpp.IQ)
	if !ok {
		return false
	}
	if !iq.IsResult() && !iq.IsError() {
		return false
	}
	p.mu.Lock()
	req, ok := p.pending[iq.ID()]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.pending, iq.ID())
	p.mu.Unlock()

	req.timer.Stop()
	if iq.IsError() {
		req.handler(nil, xmpp.NewStanzaErrorFromStanza(iq))
	} else {
		req.handler(iq, nil)
	}
	return true
}

func (p *Processor) resolveTimeout(reqID string) {
	p.mu.Lock()
	req, ok := p.pending[reqID]
	if ok {
		delete(p.pending, reqID)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	log.Debugf("processor: request %s timed out on stream %s", reqID, p.stm.ID())
	req.handler(nil, xmpp.ErrRemoteServerTimeout)
}

func handleMatches(h *stanzaHandle, stanza xmpp.Stanza) bool {
	if len(h.conditions) == 0 {
		return true
	}
	for i := range h.conditions {
		if h.conditions[i].matches(stanza) {
			return true
		}
	}
	return false
}
