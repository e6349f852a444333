/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/runqueue"
	"github.com/aether-im/aether/transport"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
)

const (
	jabberClientNamespace = "jabber:client"
	streamNamespace       = "http://etherx.jabber.org/streams"
	framingNamespace      = "urn:ietf:params:xml:ns:xmpp-framing"
)

const closeTimeout = time.Duration(5) * time.Second

// State represents the stream negotiation state.
type State uint32

const (
	// Offline represents a not connected stream.
	Offline State = iota

	// Connecting represents a stream acquiring its transport.
	Connecting

	// Initialize represents a stream waiting for the peer stream header.
	Initialize

	// Features represents a stream negotiating its feature chain.
	Features

	// Online represents a fully negotiated stream; stanzas may flow.
	Online

	// Failed is the terminal error state.
	Failed
)

// String returns State string representation.
func (s State) String() string {
	switch s {
	case Offline:
		return "offline"
	case Connecting:
		return "connecting"
	case Initialize:
		return "initialize"
	case Features:
		return "features"
	case Online:
		return "online"
	case Failed:
		return "error"
	}
	return ""
}

// Client represents a client-to-server XMPP stream: it owns the transport,
// the parser and the feature chain, and publishes every received stanza
// through its hooks once online.
type Client struct {
	cfg      *Config
	hooks    *hook.Hooks
	runQueue *runqueue.RunQueue
	dialer   *transport.Dialer

	tr     transport.Transport
	parser *xmpp.Parser

	sessID   string
	streamID string
	state    uint32
	jd       *jid.JID

	features       []feature
	featuresDone   map[string]bool
	streamFeatures xmpp.XElement
	actFeature     feature

	keepAliveTm *time.Timer
	closing     bool
	lastErr     error
}

// New returns a new client stream associated to a configuration.
func New(cfg *Config, hooks *hook.Hooks) *Client {
	c := &Client{
		cfg:          cfg,
		hooks:        hooks,
		runQueue:     runqueue.New("stream:" + cfg.JID.String()),
		dialer:       transport.NewDialer(cfg.Transport.ConnectTimeout, 0),
		sessID:       uuid.New(),
		jd:           cfg.JID,
		featuresDone: make(map[string]bool),
	}
	c.features = []feature{
		newStartTLSFeature(c),
		newSASLFeature(c),
		newCompressFeature(c),
		newBindFeature(c),
		newSessionFeature(c),
	}
	sort.Slice(c.features, func(i, j int) bool {
		return c.features[i].Priority() < c.features[j].Priority()
	})
	return c
}

// ID returns the stream identifier: the server assigned one when available,
// the locally generated session identifier otherwise.
func (c *Client) ID() string {
	if len(c.streamID) > 0 {
		return c.streamID
	}
	return c.sessID
}

// JID returns the stream JID. Once bound it includes the
// server assigned resource.
func (c *Client) JID() *jid.JID {
	return c.jd
}

// Hooks returns the stream hooks.
func (c *Client) Hooks() *hook.Hooks {
	return c.hooks
}

// State returns current stream state.
func (c *Client) State() State {
	return State(atomic.LoadUint32(&c.state))
}

// IsOnline tells whether the stream is fully negotiated and stanzas may flow.
func (c *Client) IsOnline() bool {
	return c.State() == Online
}

// LastError returns the error that moved the stream to its terminal state.
func (c *Client) LastError() error {
	return c.lastErr
}

// Open acquires a transport and starts stream negotiation.
// Negotiation proceeds asynchronously: completion is signaled through
// the stream online hook, failure through the aborted hook.
func (c *Client) Open(ctx context.Context) error {
	if c.State() != Offline {
		return errors.New("stream: already open")
	}
	c.setState(Connecting)

	var tr transport.Transport
	var err error
	switch c.cfg.Transport.Type {
	case transport.WebSocket:
		tlsCfg := &tls.Config{
			ServerName:         c.cfg.JID.Domain(),
			InsecureSkipVerify: c.cfg.SkipTLSVerify,
		}
		tr, err = c.dialer.DialWebSocket(ctx, c.cfg.Transport.URL, tlsCfg)
	default:
		tr, err = c.dialer.DialSocket(ctx, c.cfg.Transport.Address)
	}
	if err != nil {
		c.setState(Offline)
		return errors.Wrap(err, "stream: dial failed")
	}
	c.tr = tr
	c.runHook(hook.StreamConnected, &hook.StreamInfo{ID: c.ID()})

	c.runQueue.Run(func() {
		c.restartSession()
		c.sendStreamHeader()
		go c.doRead()
	})
	return nil
}

// SendElement sends a stanza over the stream. The element is silently
// dropped when the stream is not online.
func (c *Client) SendElement(elem xmpp.XElement) {
	c.runQueue.Run(func() {
		if c.State() != Online {
			log.Warnf("stream %s: dropped element sent while %s: %s", c.ID(), c.State(), elem.Name())
			return
		}
		c.writeElement(elem)
	})
}

// Close orderly closes the stream: the closing tag is sent and the stream
// waits a bounded time for the peer to confirm before releasing the transport.
func (c *Client) Close() {
	c.runQueue.Run(func() {
		switch c.State() {
		case Offline, Failed:
			return
		}
		c.closing = true
		c.sendStreamClose()

		time.AfterFunc(closeTimeout, func() {
			c.runQueue.Run(func() {
				if c.State() != Offline && c.State() != Failed {
					c.terminate(nil)
				}
			})
		})
	})
}

// Abort forces an immediate stream teardown without waiting for
// peer acknowledgment.
func (c *Client) Abort(reason error) {
	c.runQueue.Run(func() {
		c.abort(reason)
	})
}

func (c *Client) getState() State {
	return State(atomic.LoadUint32(&c.state))
}

func (c *Client) setState(state State) {
	atomic.StoreUint32(&c.state, uint32(state))
	c.runHook(hook.StreamStateChanged, &hook.StreamInfo{
		ID:    c.ID(),
		JID:   c.jd,
		State: state.String(),
	})
}

func (c *Client) restartSession() {
	var mode xmpp.ParsingMode
	switch c.tr.Type() {
	case transport.WebSocket:
		mode = xmpp.WebSocketStream
	default:
		mode = xmpp.SocketStream
	}
	c.parser = xmpp.NewParser(c.tr, mode, c.cfg.MaxStanzaSize)
}

func (c *Client) sendStreamHeader() {
	c.setState(Initialize)
	switch c.tr.Type() {
	case transport.WebSocket:
		open := xmpp.NewElementNamespace("open", framingNamespace)
		open.SetTo(c.cfg.JID.Domain())
		open.SetVersion("1.0")
		_ = c.tr.WriteElement(open, true)
	default:
		header := fmt.Sprintf(`<?xml version="1.0"?><stream:stream xmlns="%s" xmlns:stream="%s" to="%s" version="1.0" xml:lang="%s">`,
			jabberClientNamespace, streamNamespace, c.cfg.JID.Domain(), c.cfg.Lang)
		_ = c.tr.WriteString(header)
	}
}

func (c *Client) sendStreamClose() {
	switch c.tr.Type() {
	case transport.WebSocket:
		_ = c.tr.WriteElement(xmpp.NewElementNamespace("close", framingNamespace), true)
	default:
		_ = c.tr.WriteString("</stream:stream>")
	}
}

func (c *Client) writeElement(elem xmpp.XElement) {
	log.Debugf("SEND(%s): %v", c.ID(), elem)
	_ = c.tr.WriteElement(elem, true)
	c.runHook(hook.StreamElementSent, &hook.StreamInfo{
		ID:      c.ID(),
		JID:     c.jd,
		Element: elem,
	})
}

func (c *Client) doRead() {
	elem, err := c.parser.ParseElement()
	if err != nil {
		c.runQueue.Run(func() { c.handleReadError(err) })
		return
	}
	c.runQueue.Run(func() {
		if elem != nil {
			c.handleElement(elem)
		}
		switch c.getState() {
		case Offline, Failed:
			return
		default:
			go c.doRead()
		}
	})
}

func (c *Client) handleElement(elem xmpp.XElement) {
	log.Debugf("RECV(%s): %v", c.ID(), elem)
	switch c.getState() {
	case Initialize:
		c.processStreamOpen(elem)
	case Features:
		c.processFeatureElement(elem)
	case Online:
		c.processStanza(elem)
	}
}

func (c *Client) processStreamOpen(elem xmpp.XElement) {
	switch c.tr.Type() {
	case transport.WebSocket:
		if elem.Name() != "open" || elem.Namespace() != framingNamespace {
			c.abort(errors.Errorf("stream: unexpected open element: %s", elem.Name()))
			return
		}
	default:
		if elem.Name() != "stream:stream" {
			c.abort(errors.Errorf("stream: unexpected open element: %s", elem.Name()))
			return
		}
	}
	if id := elem.ID(); len(id) > 0 {
		c.streamID = id
	}
	c.setState(Features)
}

func (c *Client) processFeatureElement(elem xmpp.XElement) {
	if c.actFeature != nil {
		st, err := c.actFeature.ProcessElement(elem)
		if err != nil {
			c.abort(err)
			return
		}
		switch st {
		case featurePending:
			return
		case featureReady:
			c.featuresDone[c.actFeature.Name()] = true
			c.actFeature = nil
			c.negotiateNextFeature()
		case featureReadyRestart:
			c.featuresDone[c.actFeature.Name()] = true
			c.actFeature = nil
			c.streamFeatures = nil
			c.restartSession()
			c.sendStreamHeader()
		}
		return
	}
	if elem.Name() == "stream:features" || elem.Name() == "features" {
		c.streamFeatures = elem
		c.negotiateNextFeature()
		return
	}
	log.Warnf("stream %s: ignored element while negotiating: %s", c.ID(), elem.Name())
}

func (c *Client) negotiateNextFeature() {
	for _, f := range c.features {
		if c.featuresDone[f.Name()] {
			continue
		}
		if m := matchedFeature(f, c.streamFeatures); m != nil {
			c.actFeature = f
			if err := f.Start(m); err != nil {
				c.abort(err)
			}
			return
		}
	}
	c.goOnline()
}

// skipActiveFeature marks the active feature as done without negotiating it
// and moves on to the next remaining one.
func (c *Client) skipActiveFeature() error {
	c.featuresDone[c.actFeature.Name()] = true
	c.actFeature = nil
	c.negotiateNextFeature()
	return nil
}

func (c *Client) goOnline() {
	c.setState(Online)
	log.Infof("stream %s: online as %s", c.ID(), c.jd)
	c.scheduleKeepAlive()
	c.runHook(hook.StreamOnline, &hook.StreamInfo{ID: c.ID(), JID: c.jd})
}

func (c *Client) processStanza(elem xmpp.XElement) {
	stanza, err := xmpp.NewStanzaFromElement(elem)
	if err != nil {
		log.Warnf("stream %s: discarded malformed stanza: %v", c.ID(), err)
		return
	}
	c.runHook(hook.StreamElementReceived, &hook.StreamInfo{
		ID:      c.ID(),
		JID:     c.jd,
		Element: stanza,
	})
}

func (c *Client) scheduleKeepAlive() {
	ka := c.cfg.Transport.KeepAlive
	if ka <= 0 {
		return
	}
	c.keepAliveTm = time.AfterFunc(ka, func() {
		c.runQueue.Run(func() {
			if c.getState() != Online {
				return
			}
			// whitespace liveness probe, no response expected
			_ = c.tr.WriteString(" ")
			c.scheduleKeepAlive()
		})
	})
}

func (c *Client) handleReadError(err error) {
	switch c.getState() {
	case Offline, Failed:
		return
	}
	switch err {
	case xmpp.ErrStreamClosedByPeer:
		if !c.closing {
			c.sendStreamClose()
		}
		c.terminate(nil)
	default:
		c.abort(err)
	}
}

func (c *Client) abort(err error) {
	switch c.getState() {
	case Offline, Failed:
		return
	}
	log.Errorf("stream %s: aborted: %v", c.ID(), err)
	c.lastErr = err
	c.releaseTransport()
	c.setState(Failed)
	c.runHook(hook.StreamAborted, &hook.StreamInfo{ID: c.ID(), JID: c.jd, Err: err})
}

func (c *Client) terminate(err error) {
	c.lastErr = err
	c.releaseTransport()
	c.closing = false
	c.setState(Offline)
	c.runHook(hook.StreamClosed, &hook.StreamInfo{ID: c.ID(), JID: c.jd, Err: err})
}

func (c *Client) releaseTransport() {
	if c.keepAliveTm != nil {
		c.keepAliveTm.Stop()
		c.keepAliveTm = nil
	}
	if c.tr != nil {
		_ = c.tr.Close()
	}
	c.actFeature = nil
	c.streamFeatures = nil
	c.featuresDone = make(map[string]bool)
}

func (c *Client) runHook(hookName string, inf interface{}) {
	_, err := c.hooks.Run(hookName, &hook.ExecutionContext{
		Info:    inf,
		Sender:  c,
		Context: context.Background(),
	})
	if err != nil {
		log.Errorf("stream %s: %s hook failed: %v", c.ID(), hookName, err)
	}
}
