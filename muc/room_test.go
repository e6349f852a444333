/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"context"
	"sync"
	"testing"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/presencehub"
	"github.com/aether-im/aether/processor"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/stretchr/testify/require"
)

const testRoomJID = "lobby@muc.aether.im"

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

func (f *fakeStream) lastSent(t *testing.T) xmpp.XElement {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.True(t, len(f.sent) > 0)
	return f.sent[len(f.sent)-1]
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

func newTestRoom(t *testing.T, cfg Config) (*fakeStream, *Room) {
	t.Helper()
	stm := newFakeStream()
	p := processor.New(stm)
	roomJID, err := jid.NewWithString(testRoomJID, true)
	require.Nil(t, err)
	return stm, New(roomJID, cfg, p, stm.hooks, nil, nil)
}

func openTestRoom(t *testing.T) (*fakeStream, *Room) {
	t.Helper()
	stm, room := newTestRoom(t, Config{Nickname: "alice", History: HistoryPolicy{NoHistory: true}})
	require.Nil(t, room.Join())
	stm.deliver(t, occupantPresence("alice", ParticipantRole, MemberAffiliation, statusSelfPresence))
	require.Equal(t, OpenState, room.State())
	return stm, room
}

func occupantPresence(nick, role, affiliation string, codes ...int) *xmpp.Element {
	p := xmpp.NewElementName("presence")
	p.SetFrom(testRoomJID + "/" + nick)
	p.SetTo("alice@aether.im/desktop")
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("role", role)
	itemElem.SetAttribute("affiliation", affiliation)
	x.AppendElement(itemElem)
	appendStatusCodes(x, codes)
	p.AppendElement(x)
	return p
}

func removalPresence(nick, actorNick, reason string, codes ...int) *xmpp.Element {
	p := xmpp.NewElementName("presence")
	p.SetFrom(testRoomJID + "/" + nick)
	p.SetTo("alice@aether.im/desktop")
	p.SetType(xmpp.UnavailableType)
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("role", NoneRole)
	if len(actorNick) > 0 {
		actorElem := xmpp.NewElementName("actor")
		actorElem.SetAttribute("nick", actorNick)
		itemElem.AppendElement(actorElem)
	}
	if len(reason) > 0 {
		reasonElem := xmpp.NewElementName("reason")
		reasonElem.SetText(reason)
		itemElem.AppendElement(reasonElem)
	}
	x.AppendElement(itemElem)
	appendStatusCodes(x, codes)
	p.AppendElement(x)
	return p
}

func appendStatusCodes(x *xmpp.Element, codes []int) {
	for _, code := range codes {
		statusElem := xmpp.NewElementName("status")
		switch code {
		case statusSelfPresence:
			statusElem.SetAttribute("code", "110")
		case statusBanned:
			statusElem.SetAttribute("code", "301")
		case statusNickChanged:
			statusElem.SetAttribute("code", "303")
		case statusKicked:
			statusElem.SetAttribute("code", "307")
		}
		x.AppendElement(statusElem)
	}
}

func recordRoomEvents(hooks *hook.Hooks, names ...string) *[]string {
	var events []string
	for _, name := range names {
		hookName := name
		hooks.AddHook(hookName, func(_ *hook.ExecutionContext) error {
			events = append(events, hookName)
			return nil
		}, hook.DefaultPriority)
	}
	return &events
}

func TestRoom_Join(t *testing.T) {
	stm, room := newTestRoom(t, Config{
		Nickname: "alice",
		Password: "s3cr3t",
		History:  HistoryPolicy{NoHistory: true},
	})
	events := recordRoomEvents(stm.hooks, hook.RoomOpened, hook.OccupantJoined)

	require.Nil(t, room.Join())
	require.Equal(t, ConnectingState, room.State())

	joinElem := stm.lastSent(t)
	require.Equal(t, "presence", joinElem.Name())
	require.Equal(t, testRoomJID+"/alice", joinElem.To())
	x := joinElem.Elements().ChildNamespace("x", mucNamespace)
	require.NotNil(t, x)
	historyElem := x.Elements().Child("history")
	require.NotNil(t, historyElem)
	require.Equal(t, "0", historyElem.Attributes().Get("maxchars"))
	require.Equal(t, "s3cr3t", x.Elements().Child("password").Text())

	// joining again while connecting is rejected
	require.Equal(t, ErrAlreadyJoined, room.Join())

	stm.deliver(t, occupantPresence("alice", ParticipantRole, MemberAffiliation, statusSelfPresence))

	require.Equal(t, OpenState, room.State())
	require.Equal(t, []string{hook.RoomOpened, hook.OccupantJoined}, *events)

	self, ok := room.SelfOccupant()
	require.True(t, ok)
	require.Equal(t, "alice", self.Nick())
	require.Equal(t, ParticipantRole, self.Role())
	require.Equal(t, MemberAffiliation, self.Affiliation())
	require.True(t, self.HasVoice())
}

func TestRoom_ServiceAssignedNickname(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice"})
	require.Nil(t, room.Join())

	// the service renamed us on entry: code 110 marks own presence
	stm.deliver(t, occupantPresence("alice_2", ParticipantRole, NoneAffiliation, statusSelfPresence))

	require.Equal(t, OpenState, room.State())
	require.Equal(t, "alice_2", room.Nickname())
}

func TestRoom_JoinFailure(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice"})

	var failure *hook.RoomInfo
	stm.hooks.AddHook(hook.RoomFailure, func(execCtx *hook.ExecutionContext) error {
		failure = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	require.Nil(t, room.Join())

	p := xmpp.NewElementName("presence")
	p.SetFrom(testRoomJID + "/alice")
	p.SetTo("alice@aether.im/desktop")
	p.SetType(xmpp.ErrorType)
	errElem := xmpp.NewElementName("error")
	errElem.SetAttribute("code", "401")
	errElem.SetAttribute("type", "auth")
	errElem.AppendElement(xmpp.NewElementNamespace("not-authorized", "urn:ietf:params:xml:ns:xmpp-stanzas"))
	p.AppendElement(errElem)
	stm.deliver(t, p)

	require.Equal(t, ClosedState, room.State())
	require.NotNil(t, failure)
	require.NotNil(t, room.LastError())
	require.Equal(t, "not-authorized", room.LastError().Condition())
}

func TestRoom_OccupantRoster(t *testing.T) {
	stm, room := openTestRoom(t)

	stm.deliver(t, occupantPresence("bob", VisitorRole, NoneAffiliation))
	stm.deliver(t, occupantPresence("carol", ModeratorRole, AdminAffiliation))
	require.Equal(t, 3, room.OccupantCount())

	bob, ok := room.Occupant("bob")
	require.True(t, ok)
	require.False(t, bob.HasVoice())

	carol, ok := room.Occupant("carol")
	require.True(t, ok)
	require.True(t, carol.IsModerator())
	require.True(t, carol.IsAdmin())

	// plain departure drops the occupant
	stm.deliver(t, removalPresence("bob", "", ""))
	_, ok = room.Occupant("bob")
	require.False(t, ok)
	require.Equal(t, 2, room.OccupantCount())
}

func TestRoom_OccupantKicked(t *testing.T) {
	stm, room := openTestRoom(t)
	stm.deliver(t, occupantPresence("bob", ParticipantRole, NoneAffiliation))

	var kicked *hook.RoomInfo
	stm.hooks.AddHook(hook.OccupantKicked, func(execCtx *hook.ExecutionContext) error {
		kicked = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	stm.deliver(t, removalPresence("bob", "alice", "spam", statusKicked))

	require.NotNil(t, kicked)
	require.Equal(t, "bob", kicked.Nick)
	require.Equal(t, "alice", kicked.ActorNick)
	require.Equal(t, "spam", kicked.Reason)
	require.False(t, kicked.IsSelf)
	_, ok := room.Occupant("bob")
	require.False(t, ok)
	require.Equal(t, OpenState, room.State())
}

func TestRoom_SelfBanned(t *testing.T) {
	stm, room := openTestRoom(t)

	events := recordRoomEvents(stm.hooks, hook.OccupantBanned, hook.RoomClosed)
	stm.deliver(t, removalPresence("alice", "carol", "trolling", statusBanned, statusSelfPresence))

	require.Equal(t, ClosedState, room.State())
	require.Equal(t, 0, room.OccupantCount())
	require.Equal(t, []string{hook.OccupantBanned, hook.RoomClosed}, *events)
}

func TestRoom_NickChange(t *testing.T) {
	stm, room := openTestRoom(t)
	stm.deliver(t, occupantPresence("bob", ParticipantRole, NoneAffiliation))
	stm.deliver(t, occupantPresence("carol", ParticipantRole, NoneAffiliation))

	var change *hook.RoomInfo
	stm.hooks.AddHook(hook.OccupantNickChanged, func(execCtx *hook.ExecutionContext) error {
		change = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	// bob takes over carol's nickname: the stale carol entry is evicted
	p := removalPresence("bob", "", "", statusNickChanged)
	x := p.Elements().ChildNamespace("x", mucUserNamespace)
	x.Elements().Child("item").(*xmpp.Element).SetAttribute("nick", "carol")
	stm.deliver(t, p)

	require.NotNil(t, change)
	require.Equal(t, "bob", change.Nick)
	require.Equal(t, "carol", change.NewNick)
	require.False(t, change.IsSelf)

	_, ok := room.Occupant("bob")
	require.False(t, ok)
	carol, ok := room.Occupant("carol")
	require.True(t, ok)
	require.Equal(t, ParticipantRole, carol.Role())
	require.Equal(t, 2, room.OccupantCount())
}

func TestRoom_SelfNickChange(t *testing.T) {
	stm, room := openTestRoom(t)
	require.Nil(t, room.SetNickname("alicia"))

	p := removalPresence("alice", "", "", statusNickChanged, statusSelfPresence)
	x := p.Elements().ChildNamespace("x", mucUserNamespace)
	x.Elements().Child("item").(*xmpp.Element).SetAttribute("nick", "alicia")
	stm.deliver(t, p)

	require.Equal(t, "alicia", room.Nickname())

	// own presence is re-asserted under the new occupant JID
	reassert := stm.lastSent(t)
	require.Equal(t, "presence", reassert.Name())
	require.Equal(t, testRoomJID+"/alicia", reassert.To())
}

func TestRoom_SetNicknameBeforeJoin(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice"})

	// before joining the nickname is stored and used on the next join
	require.Nil(t, room.SetNickname("alicia"))
	require.Equal(t, "alicia", room.Nickname())

	require.Nil(t, room.Join())
	joinElem := stm.lastSent(t)
	require.Equal(t, testRoomJID+"/alicia", joinElem.To())
}

func TestRoom_SendPresence(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice"})

	// an unavailable presence on a closed room has nowhere to go
	require.Equal(t, ErrRoomNotOpen, room.SendPresence(xmpp.UnavailableType, xmpp.AvailableShowState, "", 0))

	// an available presence on a closed room begins the join sequence
	require.Nil(t, room.SendPresence(xmpp.AvailableType, xmpp.AwayShowState, "brb", 5))
	require.Equal(t, ConnectingState, room.State())

	joinElem := stm.lastSent(t)
	require.Equal(t, testRoomJID+"/alice", joinElem.To())
	require.NotNil(t, joinElem.Elements().ChildNamespace("x", mucNamespace))
	require.Equal(t, "away", joinElem.Elements().Child("show").Text())
	require.Equal(t, "5", joinElem.Elements().Child("priority").Text())
	require.Equal(t, "brb", joinElem.Elements().Child("status").Text())

	stm.deliver(t, occupantPresence("alice", ParticipantRole, MemberAffiliation, statusSelfPresence))
	require.Equal(t, OpenState, room.State())

	// once joined the presence is re-asserted under the occupant JID
	require.Nil(t, room.SendPresence(xmpp.AvailableType, xmpp.DoNotDisturbShowState, "", 0))
	update := stm.lastSent(t)
	require.Equal(t, testRoomJID+"/alice", update.To())
	require.Equal(t, "dnd", update.Elements().Child("show").Text())
	require.Nil(t, update.Elements().ChildNamespace("x", mucNamespace))

	// an unavailable presence while joined leaves the room
	require.Nil(t, room.SendPresence(xmpp.UnavailableType, xmpp.AvailableShowState, "bye", 0))
	leave := stm.lastSent(t)
	require.Equal(t, xmpp.UnavailableType, leave.Type())
	require.Equal(t, testRoomJID+"/alice", leave.To())
	require.Equal(t, "bye", leave.Elements().Child("status").Text())
}

func TestRoom_AutoPresence(t *testing.T) {
	stm := newFakeStream()
	p := processor.New(stm)
	hub := presencehub.New(stm.hooks)
	roomJID, err := jid.NewWithString(testRoomJID, true)
	require.Nil(t, err)
	room := New(roomJID, Config{Nickname: "alice", AutoPresence: true}, p, stm.hooks, nil, hub)

	// becoming available pulls the room in
	hub.SetPresence(xmpp.AvailableShowState, "", 0)
	require.Equal(t, ConnectingState, room.State())
	joinElem := stm.lastSent(t)
	require.Equal(t, testRoomJID+"/alice", joinElem.To())
	require.NotNil(t, joinElem.Elements().ChildNamespace("x", mucNamespace))

	stm.deliver(t, occupantPresence("alice", ParticipantRole, MemberAffiliation, statusSelfPresence))
	require.Equal(t, OpenState, room.State())

	// global presence updates are mirrored into the room
	hub.SetPresence(xmpp.AwayShowState, "brb", 0)
	mirrored := stm.lastSent(t)
	require.Equal(t, testRoomJID+"/alice", mirrored.To())
	require.Equal(t, "away", mirrored.Elements().Child("show").Text())

	// going unavailable announces the departure
	hub.SetUnavailable("bye")
	leave := stm.lastSent(t)
	require.Equal(t, xmpp.UnavailableType, leave.Type())
	require.Equal(t, testRoomJID+"/alice", leave.To())
}

func TestRoom_SubjectChange(t *testing.T) {
	stm, room := openTestRoom(t)

	var subjects []string
	stm.hooks.AddHook(hook.RoomSubjectChanged, func(execCtx *hook.ExecutionContext) error {
		subjects = append(subjects, execCtx.Info.(*hook.RoomInfo).Reason)
		return nil
	}, hook.DefaultPriority)

	m := xmpp.NewElementName("message")
	m.SetFrom(testRoomJID + "/carol")
	m.SetTo("alice@aether.im/desktop")
	m.SetType(xmpp.GroupChatType)
	subjectElem := xmpp.NewElementName("subject")
	subjectElem.SetText("release planning")
	m.AppendElement(subjectElem)

	stm.deliver(t, m)
	stm.deliver(t, m) // repeated announcement is not a change

	require.Equal(t, "release planning", room.Subject())
	require.Equal(t, []string{"release planning"}, subjects)
}

func TestRoom_SetUserRole(t *testing.T) {
	stm, room := openTestRoom(t)
	stm.deliver(t, occupantPresence("bob", ParticipantRole, NoneAffiliation))

	var result *ResultInfo
	stm.hooks.AddHook(hook.RoomRequestCompleted, func(execCtx *hook.ExecutionContext) error {
		result = execCtx.Info.(*ResultInfo)
		return nil
	}, hook.DefaultPriority)

	reqID, err := room.KickOccupant("bob", "spam")
	require.Nil(t, err)

	iqElem := stm.lastSent(t)
	require.Equal(t, "iq", iqElem.Name())
	require.Equal(t, xmpp.SetType, iqElem.Type())
	query := iqElem.Elements().ChildNamespace("query", mucAdminNamespace)
	require.NotNil(t, query)
	itemElem := query.Elements().Child("item")
	require.Equal(t, "bob", itemElem.Attributes().Get("nick"))
	require.Equal(t, NoneRole, itemElem.Attributes().Get("role"))
	require.Equal(t, "spam", itemElem.Elements().Child("reason").Text())

	resultIQ := xmpp.NewElementName("iq")
	resultIQ.SetID(reqID)
	resultIQ.SetType(xmpp.ResultType)
	resultIQ.SetFrom(testRoomJID)
	resultIQ.SetTo("alice@aether.im/desktop")
	stm.deliver(t, resultIQ)

	require.NotNil(t, result)
	require.Equal(t, reqID, result.RequestID)
	require.Equal(t, "role", result.Kind)
	require.Equal(t, "bob", result.Nick)
	require.Equal(t, NoneRole, result.Role)
	require.Nil(t, result.Err)
}

func TestRoom_SetUserRoleRejected(t *testing.T) {
	stm, room := openTestRoom(t)

	var result *ResultInfo
	stm.hooks.AddHook(hook.RoomRequestCompleted, func(execCtx *hook.ExecutionContext) error {
		result = execCtx.Info.(*ResultInfo)
		return nil
	}, hook.DefaultPriority)

	reqID, err := room.SetUserRole("bob", VisitorRole, "")
	require.Nil(t, err)

	errorIQ := xmpp.NewElementName("iq")
	errorIQ.SetID(reqID)
	errorIQ.SetType(xmpp.ErrorType)
	errorIQ.SetFrom(testRoomJID)
	errorIQ.SetTo("alice@aether.im/desktop")
	errElem := xmpp.NewElementName("error")
	errElem.SetAttribute("code", "403")
	errElem.SetAttribute("type", "auth")
	errElem.AppendElement(xmpp.NewElementNamespace("forbidden", "urn:ietf:params:xml:ns:xmpp-stanzas"))
	errorIQ.AppendElement(errElem)
	stm.deliver(t, errorIQ)

	require.NotNil(t, result)
	require.NotNil(t, result.Err)
	require.Equal(t, "forbidden", result.Err.Condition())
}

func TestRoom_LoadAffiliationList(t *testing.T) {
	stm, room := openTestRoom(t)

	var result *ResultInfo
	stm.hooks.AddHook(hook.RoomRequestCompleted, func(execCtx *hook.ExecutionContext) error {
		result = execCtx.Info.(*ResultInfo)
		return nil
	}, hook.DefaultPriority)

	reqID, err := room.LoadAffiliationList(MemberAffiliation)
	require.Nil(t, err)

	resultIQ := xmpp.NewElementName("iq")
	resultIQ.SetID(reqID)
	resultIQ.SetType(xmpp.ResultType)
	resultIQ.SetFrom(testRoomJID)
	resultIQ.SetTo("alice@aether.im/desktop")
	query := xmpp.NewElementNamespace("query", mucAdminNamespace)
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("jid", "bob@aether.im")
	itemElem.SetAttribute("affiliation", MemberAffiliation)
	query.AppendElement(itemElem)
	resultIQ.AppendElement(query)
	stm.deliver(t, resultIQ)

	require.NotNil(t, result)
	require.Equal(t, "affiliation_list", result.Kind)
	require.Equal(t, 1, len(result.Items))
	require.Equal(t, "bob@aether.im", result.Items[0].JID.String())
	require.Equal(t, MemberAffiliation, result.Items[0].Affiliation)
}

func TestRoom_AdminRequestRequiresOpenRoom(t *testing.T) {
	_, room := newTestRoom(t, Config{Nickname: "alice"})

	_, err := room.SetUserRole("bob", NoneRole, "")
	require.Equal(t, ErrRoomNotOpen, err)
	_, err = room.LoadRoomConfig()
	require.Equal(t, ErrRoomNotOpen, err)
	require.Equal(t, ErrRoomNotOpen, room.SendMessage("hi", ""))
}

func TestRoom_AdminRequestStreamOffline(t *testing.T) {
	stm, room := openTestRoom(t)

	events := recordRoomEvents(stm.hooks, hook.RoomRequestCompleted)

	stm.setOnline(false)
	_, err := room.SetUserRole("bob", VisitorRole, "")
	require.Equal(t, ErrStreamOffline, err)
	require.Equal(t, 0, len(*events))
}

func TestRoom_ClosedRoomIgnoresPresence(t *testing.T) {
	stm := newFakeStream()
	p := processor.New(stm)
	roomJID, err := jid.NewWithString(testRoomJID, true)
	require.Nil(t, err)
	room := New(roomJID, Config{Nickname: "alice"}, p, stm.hooks, nil, nil)

	var fallthroughs int
	p.InsertStanzaHandle(processor.In, 10, []processor.Condition{
		{Tag: xmpp.PresenceName},
	}, func(_ xmpp.Stanza) bool {
		fallthroughs++
		return true
	})

	// a closed room leaves room presences to the rest of the pipeline
	stm.deliver(t, occupantPresence("bob", ParticipantRole, NoneAffiliation))

	require.Equal(t, 0, room.OccupantCount())
	require.Equal(t, 1, fallthroughs)
}

func TestRoom_InvitationReceived(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice"})

	var invitation *hook.RoomInfo
	stm.hooks.AddHook(hook.RoomInvitationReceived, func(execCtx *hook.ExecutionContext) error {
		invitation = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	m := xmpp.NewElementName("message")
	m.SetFrom(testRoomJID)
	m.SetTo("alice@aether.im/desktop")
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	inviteElem := xmpp.NewElementName("invite")
	inviteElem.SetAttribute("from", "carol@aether.im")
	reasonElem := xmpp.NewElementName("reason")
	reasonElem.SetText("join us")
	inviteElem.AppendElement(reasonElem)
	x.AppendElement(inviteElem)
	passwordElem := xmpp.NewElementName("password")
	passwordElem.SetText("s3cr3t")
	x.AppendElement(passwordElem)
	m.AppendElement(x)
	stm.deliver(t, m)

	require.NotNil(t, invitation)
	require.Equal(t, "carol@aether.im", invitation.RealJID.String())
	require.Equal(t, "join us", invitation.Reason)

	// the attached password is picked up for the next join
	require.Nil(t, room.Join())
	joinElem := stm.lastSent(t)
	joinX := joinElem.Elements().ChildNamespace("x", mucNamespace)
	require.Equal(t, "s3cr3t", joinX.Elements().Child("password").Text())
}

func TestRoom_VoiceRequested(t *testing.T) {
	stm, _ := openTestRoom(t)

	var request *hook.RoomInfo
	stm.hooks.AddHook(hook.RoomVoiceRequested, func(execCtx *hook.ExecutionContext) error {
		request = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	m := xmpp.NewElementName("message")
	m.SetFrom(testRoomJID)
	m.SetTo("alice@aether.im/desktop")
	x := xmpp.NewElementNamespace("x", "jabber:x:data")
	x.SetAttribute("type", "form")
	fieldElem := xmpp.NewElementName("field")
	fieldElem.SetAttribute("var", "FORM_TYPE")
	fieldElem.SetAttribute("type", "hidden")
	valueElem := xmpp.NewElementName("value")
	valueElem.SetText(voiceRequestFormType)
	fieldElem.AppendElement(valueElem)
	x.AppendElement(fieldElem)
	nickField := xmpp.NewElementName("field")
	nickField.SetAttribute("var", "muc#roomnick")
	nickValue := xmpp.NewElementName("value")
	nickValue.SetText("bob")
	nickField.AppendElement(nickValue)
	x.AppendElement(nickField)
	m.AppendElement(x)
	stm.deliver(t, m)

	require.NotNil(t, request)
	require.Equal(t, "bob", request.Nick)
}

func TestRoom_IsolatedMessages(t *testing.T) {
	stm, room := newTestRoom(t, Config{Nickname: "alice", Isolated: true})
	require.Nil(t, room.Join())
	stm.deliver(t, occupantPresence("alice", ParticipantRole, MemberAffiliation, statusSelfPresence))

	var received *hook.RoomInfo
	stm.hooks.AddHook(hook.RoomMessageReceived, func(execCtx *hook.ExecutionContext) error {
		received = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	m := xmpp.NewElementName("message")
	m.SetFrom(testRoomJID + "/bob")
	m.SetTo("alice@aether.im/desktop")
	m.SetType(xmpp.GroupChatType)
	bodyElem := xmpp.NewElementName("body")
	bodyElem.SetText("hello everyone")
	m.AppendElement(bodyElem)
	stm.deliver(t, m)

	require.NotNil(t, received)
	require.Equal(t, "bob", received.Nick)

	// private occupant messages are surfaced the same way
	received = nil
	pm := xmpp.NewElementName("message")
	pm.SetFrom(testRoomJID + "/carol")
	pm.SetTo("alice@aether.im/desktop")
	pm.SetType(xmpp.ChatType)
	pmBody := xmpp.NewElementName("body")
	pmBody.SetText("psst")
	pm.AppendElement(pmBody)
	stm.deliver(t, pm)

	require.NotNil(t, received)
	require.Equal(t, "carol", received.Nick)
}

func TestRoom_Leave(t *testing.T) {
	stm, room := openTestRoom(t)
	stm.deliver(t, occupantPresence("bob", ParticipantRole, NoneAffiliation))

	events := recordRoomEvents(stm.hooks, hook.OccupantLeft, hook.RoomClosed)

	require.Nil(t, room.Leave("good night"))
	leaveElem := stm.lastSent(t)
	require.Equal(t, xmpp.UnavailableType, leaveElem.Type())
	require.Equal(t, "good night", leaveElem.Elements().Child("status").Text())

	// the room closes once the service echoes the departure
	require.Equal(t, OpenState, room.State())
	stm.deliver(t, removalPresence("alice", "", "", statusSelfPresence))

	require.Equal(t, ClosedState, room.State())
	require.Equal(t, 0, room.OccupantCount())
	require.Equal(t, []string{hook.OccupantLeft, hook.RoomClosed}, *events)
}

func TestRoom_Destroyed(t *testing.T) {
	stm, room := openTestRoom(t)

	var destroyed *hook.RoomInfo
	stm.hooks.AddHook(hook.RoomDestroyed, func(execCtx *hook.ExecutionContext) error {
		destroyed = execCtx.Info.(*hook.RoomInfo)
		return nil
	}, hook.DefaultPriority)

	p := xmpp.NewElementName("presence")
	p.SetFrom(testRoomJID + "/alice")
	p.SetTo("alice@aether.im/desktop")
	p.SetType(xmpp.UnavailableType)
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	destroyElem := xmpp.NewElementName("destroy")
	reasonElem := xmpp.NewElementName("reason")
	reasonElem.SetText("shutting down")
	destroyElem.AppendElement(reasonElem)
	x.AppendElement(destroyElem)
	p.AppendElement(x)
	stm.deliver(t, p)

	require.NotNil(t, destroyed)
	require.Equal(t, "shutting down", destroyed.Reason)
	require.Equal(t, ClosedState, room.State())
}

func TestRoom_StreamTeardown(t *testing.T) {
	stm, room := openTestRoom(t)
	_, err := room.LoadRoomConfig()
	require.Nil(t, err)

	events := recordRoomEvents(stm.hooks, hook.RoomClosed, hook.RoomRequestCompleted)

	_, err = stm.hooks.Run(hook.StreamClosed, &hook.ExecutionContext{
		Info:    &hook.StreamInfo{ID: stm.ID()},
		Context: context.Background(),
	})
	require.Nil(t, err)

	require.Equal(t, ClosedState, room.State())
	// pending requests are dropped without completion callbacks
	require.Equal(t, []string{hook.RoomClosed}, *events)
}

func TestRoom_SendOperations(t *testing.T) {
	stm, room := openTestRoom(t)

	require.Nil(t, room.SendMessage("hello", ""))
	groupchat := stm.lastSent(t)
	require.Equal(t, xmpp.GroupChatType, groupchat.Type())
	require.Equal(t, testRoomJID, groupchat.To())

	require.Nil(t, room.SendMessage("psst", "bob"))
	private := stm.lastSent(t)
	require.Equal(t, xmpp.ChatType, private.Type())
	require.Equal(t, testRoomJID+"/bob", private.To())

	require.Nil(t, room.SendSubject("weekly sync"))
	subjectMsg := stm.lastSent(t)
	require.Equal(t, "weekly sync", subjectMsg.Elements().Child("subject").Text())

	contact, _ := jid.NewWithString("bob@aether.im", true)
	require.Nil(t, room.SendInvitation(contact, "come in"))
	inviteMsg := stm.lastSent(t)
	inviteX := inviteMsg.Elements().ChildNamespace("x", mucUserNamespace)
	require.NotNil(t, inviteX)
	require.Equal(t, "bob@aether.im", inviteX.Elements().Child("invite").Attributes().Get("to"))

	require.Nil(t, room.SendVoiceRequest())
	voiceMsg := stm.lastSent(t)
	voiceX := voiceMsg.Elements().ChildNamespace("x", "jabber:x:data")
	require.NotNil(t, voiceX)
}
