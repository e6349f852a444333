/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	hooks *hook.Hooks

	mu     sync.Mutex
	online bool
	sent   []xmpp.XElement
}

func newFakeStream() *fakeStream {
	return &fakeStream{hooks: hook.NewHooks(), online: true}
}

func (f *fakeStream) ID() string         { return "fake-1" }
func (f *fakeStream) Hooks() *hook.Hooks { return f.hooks }

func (f *fakeStream) IsOnline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeStream) setOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func (f *fakeStream) SendElement(elem xmpp.XElement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, elem)
}

func (f *fakeStream) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeStream) deliver(t *testing.T, elem xmpp.XElement) {
	t.Helper()
	stanza, err := xmpp.NewStanzaFromElement(elem)
	require.Nil(t, err)
	_, err = f.hooks.Run(hook.StreamElementReceived, &hook.ExecutionContext{
		Info:    &hook.StreamInfo{ID: f.ID(), Element: stanza},
		Context: context.Background(),
	})
	require.Nil(t, err)
}

func testMessage(from, to, body string) *xmpp.Element {
	m := xmpp.NewElementName("message")
	m.SetFrom(from)
	m.SetTo(to)
	m.SetType(xmpp.ChatType)
	b := xmpp.NewElementName("body")
	b.SetText(body)
	m.AppendElement(b)
	return m
}

func TestProcessor_DispatchOrder(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var order []string
	p.InsertStanzaHandle(In, 20, []Condition{{Tag: "message"}}, func(_ xmpp.Stanza) bool {
		order = append(order, "high")
		return false
	})
	p.InsertStanzaHandle(In, 10, []Condition{{Tag: "message"}}, func(_ xmpp.Stanza) bool {
		order = append(order, "low")
		return true
	})

	stm.deliver(t, testMessage("bob@aether.im/home", "alice@aether.im", "hi"))

	// ascending priority, dispatch stops at first acceptance
	require.Equal(t, []string{"low"}, order)
}

func TestProcessor_ConditionMatching(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var matched int
	p.InsertStanzaHandle(In, 0, []Condition{
		{Tag: "iq", ChildName: "query", ChildNamespace: "jabber:iq:version"},
	}, func(_ xmpp.Stanza) bool {
		matched++
		return true
	})

	versionIQ := xmpp.NewElementName("iq")
	versionIQ.SetID("v1")
	versionIQ.SetType(xmpp.GetType)
	versionIQ.AppendElement(xmpp.NewElementNamespace("query", "jabber:iq:version"))
	stm.deliver(t, versionIQ)
	require.Equal(t, 1, matched)

	timeIQ := xmpp.NewElementName("iq")
	timeIQ.SetID("t1")
	timeIQ.SetType(xmpp.GetType)
	timeIQ.AppendElement(xmpp.NewElementNamespace("query", "urn:xmpp:time"))
	stm.deliver(t, timeIQ)
	require.Equal(t, 1, matched)
}

func TestProcessor_RemoveStanzaHandle(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var invoked bool
	id := p.InsertStanzaHandle(In, 0, nil, func(_ xmpp.Stanza) bool {
		invoked = true
		return true
	})
	p.RemoveStanzaHandle(id)
	p.RemoveStanzaHandle(id) // idempotent

	stm.deliver(t, testMessage("bob@aether.im/home", "alice@aether.im", "hi"))
	require.False(t, invoked)
}

func TestProcessor_SendStanzaOut(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	p.InsertStanzaHandle(Out, 0, []Condition{{Tag: "presence"}}, func(_ xmpp.Stanza) bool {
		return true // consumed
	})

	j, _ := jid.NewWithString("alice@aether.im/desktop", true)
	p.SendStanzaOut(xmpp.NewPresence(j, j, xmpp.AvailableType))
	require.Equal(t, 0, stm.sentCount())

	msg, err := xmpp.NewStanzaFromElement(testMessage("alice@aether.im", "bob@aether.im", "hi"))
	require.Nil(t, err)
	p.SendStanzaOut(msg)
	require.Equal(t, 1, stm.sentCount())
}

func TestProcessor_RequestResult(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var resolved int
	var gotErr *xmpp.StanzaError
	reqID := p.SendStanzaRequest(newTrackedIQ(""), time.Minute, func(response xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
		resolved++
		gotErr = stanzaErr
	})
	require.True(t, len(reqID) > 0)
	require.Equal(t, 1, stm.sentCount())
	require.Equal(t, 1, p.PendingRequestCount())

	result := xmpp.NewElementName("iq")
	result.SetID(reqID)
	result.SetType(xmpp.ResultType)
	stm.deliver(t, result)

	require.Equal(t, 1, resolved)
	require.Nil(t, gotErr)
	require.Equal(t, 0, p.PendingRequestCount())

	// a late duplicate resolves nothing
	stm.deliver(t, result)
	require.Equal(t, 1, resolved)
}

func TestProcessor_RequestError(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var gotErr *xmpp.StanzaError
	reqID := p.SendStanzaRequest(newTrackedIQ("req-1"), time.Minute, func(_ xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
		gotErr = stanzaErr
	})
	require.Equal(t, "req-1", reqID)

	errResp := xmpp.NewElementName("iq")
	errResp.SetID(reqID)
	errResp.SetType(xmpp.ErrorType)
	errResp.AppendElement(xmpp.ErrForbidden.Element())
	stm.deliver(t, errResp)

	require.NotNil(t, gotErr)
	require.Equal(t, xmpp.ForbiddenCondition, gotErr.Condition())
}

func TestProcessor_RequestTimeout(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	resolvedCh := make(chan *xmpp.StanzaError, 1)
	p.SendStanzaRequest(newTrackedIQ(""), 50*time.Millisecond, func(_ xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
		resolvedCh <- stanzaErr
	})

	select {
	case stanzaErr := <-resolvedCh:
		require.NotNil(t, stanzaErr)
		require.Equal(t, xmpp.RemoteServerTimeoutCondition, stanzaErr.Condition())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for request resolution")
	}
	require.Equal(t, 0, p.PendingRequestCount())
}

func TestProcessor_RequestOffline(t *testing.T) {
	stm := newFakeStream()
	stm.setOnline(false)
	p := New(stm)

	var resolved bool
	reqID := p.SendStanzaRequest(newTrackedIQ(""), time.Minute, func(_ xmpp.Stanza, _ *xmpp.StanzaError) {
		resolved = true
	})

	// an offline stream can't transmit: the request is not tracked at all
	require.Equal(t, "", reqID)
	require.Equal(t, 0, p.PendingRequestCount())
	require.Equal(t, 0, stm.sentCount())
	require.False(t, resolved)
}

func TestProcessor_TeardownCancelsPending(t *testing.T) {
	stm := newFakeStream()
	p := New(stm)

	var resolved bool
	p.SendStanzaRequest(newTrackedIQ(""), 50*time.Millisecond, func(_ xmpp.Stanza, _ *xmpp.StanzaError) {
		resolved = true
	})
	_, err := stm.hooks.Run(hook.StreamClosed, &hook.ExecutionContext{
		Info:    &hook.StreamInfo{ID: stm.ID()},
		Context: context.Background(),
	})
	require.Nil(t, err)
	require.Equal(t, 0, p.PendingRequestCount())

	time.Sleep(100 * time.Millisecond)
	require.False(t, resolved)
}

func newTrackedIQ(id string) *xmpp.IQ {
	iq := xmpp.NewIQType(id, xmpp.GetType)
	iq.AppendElement(xmpp.NewElementNamespace("query", "http://jabber.org/protocol/muc#admin"))
	from, _ := jid.NewWithString("alice@aether.im/desktop", true)
	to, _ := jid.NewWithString("room@muc.aether.im", true)
	iq.SetFromJID(from)
	iq.SetToJID(to)
	return iq
}
