/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/presencehub"
	"github.com/aether-im/aether/processor"
	"github.com/aether-im/aether/xep0004"
	"github.com/aether-im/aether/xep0030"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/google/uuid"
)

const (
	adminRequestTimeout = time.Duration(30) * time.Second
	listRequestTimeout  = time.Duration(60) * time.Second
)

// RoomState represents a room current state.
type RoomState int

const (
	// ClosedState indicates the room is not usable: never joined, left,
	// or torn down.
	ClosedState RoomState = iota

	// ConnectingState indicates a join is in flight and not yet confirmed.
	ConnectingState

	// OpenState indicates own join presence was confirmed and the room is
	// fully usable.
	OpenState
)

// String returns RoomState string representation.
func (s RoomState) String() string {
	switch s {
	case ConnectingState:
		return "connecting"
	case OpenState:
		return "open"
	}
	return "closed"
}

// Router dispatches the room stanzas through the stream stanza pipeline.
type Router interface {
	InsertStanzaHandle(direction processor.Direction, priority int, conditions []processor.Condition, handler processor.Handler) int
	RemoveStanzaHandle(handleID int)
	SendStanzaOut(stanza xmpp.Stanza)
	SendStanzaRequest(stanza *xmpp.IQ, timeout time.Duration, hnd processor.RequestHandler) string
}

// Config represents a room engine configuration.
type Config struct {
	// Nickname is the nickname to join the room under.
	Nickname string `yaml:"nickname"`

	// Password is the room password, for password protected rooms.
	Password string `yaml:"password"`

	// History controls how much discussion history is requested on join.
	History HistoryPolicy `yaml:"history"`

	// AutoPresence mirrors own global presence updates into the room.
	AutoPresence bool `yaml:"auto_presence"`

	// Isolated makes the room consume its groupchat messages instead of
	// leaving them to the shared stanza pipeline.
	Isolated bool `yaml:"isolated"`
}

// Room represents a multi-user chat room engine: it tracks the room occupant
// roster out of the service presence announcements, surfaces room events
// through hooks and submits administrative requests on behalf of the client.
type Room struct {
	roomJID     *jid.JID
	router      Router
	hooks       *hook.Hooks
	disco       *xep0030.DiscoInfo
	presenceHub *presencehub.PresenceHub

	presenceHandleID int
	messageHandleID  int

	mu           sync.RWMutex
	state        RoomState
	nickname     string
	password     string
	history      HistoryPolicy
	autoPresence bool
	isolated     bool
	name         string
	subject      string
	selfNick     string
	occupants    map[string]*Occupant
	pending      map[string]*pendingRequest
	lastErr      *xmpp.StanzaError
}

// New returns an initialized room engine bound to a room bare JID.
// disco and presenceHub are optional.
func New(roomJID *jid.JID, cfg Config, router Router, hooks *hook.Hooks, disco *xep0030.DiscoInfo, presenceHub *presencehub.PresenceHub) *Room {
	r := &Room{
		roomJID:      roomJID.ToBareJID(),
		router:       router,
		hooks:        hooks,
		disco:        disco,
		presenceHub:  presenceHub,
		nickname:     cfg.Nickname,
		password:     cfg.Password,
		history:      cfg.History,
		autoPresence: cfg.AutoPresence,
		isolated:     cfg.Isolated,
		occupants:    make(map[string]*Occupant),
		pending:      make(map[string]*pendingRequest),
	}
	r.presenceHandleID = router.InsertStanzaHandle(processor.In, 0, []processor.Condition{
		{Tag: xmpp.PresenceName},
	}, r.processPresence)
	r.messageHandleID = router.InsertStanzaHandle(processor.In, 0, []processor.Condition{
		{Tag: xmpp.MessageName},
	}, r.processMessage)

	hooks.AddHook(hook.StreamClosed, r.onStreamTeardown, hook.LowPriority)
	hooks.AddHook(hook.StreamAborted, r.onStreamTeardown, hook.LowPriority)
	if presenceHub != nil {
		hooks.AddHook(hook.OwnPresenceUpdated, r.onOwnPresenceUpdated, hook.DefaultPriority)
	}
	if disco != nil {
		hooks.AddHook(hook.DiscoInfoReceived, r.onDiscoInfoReceived, hook.DefaultPriority)
	}
	return r
}

// Dispose unregisters the room from the stanza pipeline and hooks.
// A disposed room receives no further events.
func (r *Room) Dispose() {
	r.router.RemoveStanzaHandle(r.presenceHandleID)
	r.router.RemoveStanzaHandle(r.messageHandleID)
	r.hooks.RemoveHook(hook.StreamClosed, r.onStreamTeardown)
	r.hooks.RemoveHook(hook.StreamAborted, r.onStreamTeardown)
	if r.presenceHub != nil {
		r.hooks.RemoveHook(hook.OwnPresenceUpdated, r.onOwnPresenceUpdated)
	}
	if r.disco != nil {
		r.hooks.RemoveHook(hook.DiscoInfoReceived, r.onDiscoInfoReceived)
	}
	r.teardown(nil)
}

// RoomJID returns the room bare JID.
func (r *Room) RoomJID() *jid.JID {
	return r.roomJID
}

// State returns the room current state.
func (r *Room) State() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Nickname returns own nickname inside the room. After joining it reflects
// the service assigned nickname, which may differ from the configured one.
func (r *Room) Nickname() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nickname
}

// Name returns the room discovered display name, when available.
func (r *Room) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Subject returns the room current subject.
func (r *Room) Subject() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subject
}

// SetPassword updates the password used on the next join.
func (r *Room) SetPassword(password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.password = password
}

// SetHistoryPolicy updates the history policy used on the next join.
func (r *Room) SetHistoryPolicy(policy HistoryPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = policy
}

// LastError returns the last error condition the service reported on a
// failed join or room operation.
func (r *Room) LastError() *xmpp.StanzaError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// OccupantCount returns the number of tracked room occupants.
func (r *Room) OccupantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.occupants)
}

// Occupants returns a snapshot of the tracked room occupants.
func (r *Room) Occupants() []Occupant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Occupant, 0, len(r.occupants))
	for _, occ := range r.occupants {
		res = append(res, *occ)
	}
	return res
}

// Occupant returns a snapshot of the occupant registered under a nickname.
func (r *Room) Occupant(nick string) (Occupant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	occ := r.occupants[nick]
	if occ == nil {
		return Occupant{}, false
	}
	return *occ, true
}

// SelfOccupant returns a snapshot of own occupant entry.
func (r *Room) SelfOccupant() (Occupant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	occ := r.occupants[r.selfNick]
	if occ == nil {
		return Occupant{}, false
	}
	return *occ, true
}

// Join requests entry to the room under the configured nickname.
// The join outcome is announced through the room opened or room failure hook.
func (r *Room) Join() error {
	r.mu.Lock()
	if r.state != ClosedState {
		r.mu.Unlock()
		return ErrAlreadyJoined
	}
	if len(r.nickname) == 0 {
		r.mu.Unlock()
		return ErrMissingNickname
	}
	r.state = ConnectingState
	r.lastErr = nil
	presence := r.joinPresence(r.nickname)
	r.mu.Unlock()

	log.Infof("muc: joining room %s as %s", r.roomJID, presence.To())
	r.router.SendStanzaOut(presence)

	if r.disco != nil && !r.disco.HasInfo(r.roomJID) {
		r.disco.RequestInfo(r.roomJID)
	}
	return nil
}

// Leave exits the room announcing an optional parting status line.
// The room transitions to closed when the service echoes the departure.
func (r *Room) Leave(status string) error {
	r.mu.RLock()
	if r.state == ClosedState {
		r.mu.RUnlock()
		return ErrRoomNotOpen
	}
	nick := r.selfNick
	if len(nick) == 0 {
		nick = r.nickname
	}
	r.mu.RUnlock()

	presence := xmpp.NewPresence(&jid.JID{}, r.roomJID.WithResource(nick), xmpp.UnavailableType)
	if len(status) > 0 {
		statusElem := xmpp.NewElementName("status")
		statusElem.SetText(status)
		presence.AppendElement(statusElem)
	}
	r.router.SendStanzaOut(presence)
	return nil
}

// SendPresence announces own presence inside the room. An available presence
// sent while the room is closed begins the join sequence under the configured
// nickname; an unavailable one sent while joined leaves the room.
func (r *Room) SendPresence(presenceType string, show xmpp.ShowState, status string, priority int8) error {
	r.mu.Lock()
	if r.state == ClosedState {
		if presenceType != xmpp.AvailableType {
			r.mu.Unlock()
			return ErrRoomNotOpen
		}
		if len(r.nickname) == 0 {
			r.mu.Unlock()
			return ErrMissingNickname
		}
		r.state = ConnectingState
		r.lastErr = nil
		presence := ownPresence(r.roomJID.WithResource(r.nickname), presenceType, show, status, priority)
		r.appendJoinContext(presence)
		r.mu.Unlock()

		log.Infof("muc: joining room %s as %s", r.roomJID, presence.To())
		r.router.SendStanzaOut(presence)

		if r.disco != nil && !r.disco.HasInfo(r.roomJID) {
			r.disco.RequestInfo(r.roomJID)
		}
		return nil
	}
	nick := r.selfNick
	if len(nick) == 0 {
		nick = r.nickname
	}
	r.mu.Unlock()

	r.router.SendStanzaOut(ownPresence(r.roomJID.WithResource(nick), presenceType, show, status, priority))
	return nil
}

// SetNickname requests a nickname change. While joined the change is
// effective once the service confirms it through the occupant nick changed
// hook; otherwise the nickname is stored and used on the next join.
func (r *Room) SetNickname(nick string) error {
	if len(nick) == 0 {
		return ErrMissingNickname
	}
	r.mu.Lock()
	if r.state != OpenState {
		r.nickname = nick
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	presence := xmpp.NewPresence(&jid.JID{}, r.roomJID.WithResource(nick), xmpp.AvailableType)
	r.router.SendStanzaOut(presence)
	return nil
}

// SendMessage posts a groupchat message to the room, or a private message
// when toNick is non-empty.
func (r *Room) SendMessage(body string, toNick string) error {
	if r.State() != OpenState {
		return ErrRoomNotOpen
	}
	var msg *xmpp.Message
	if len(toNick) > 0 {
		msg = xmpp.NewMessageType(uuid.New().String(), xmpp.ChatType)
		msg.SetToJID(r.roomJID.WithResource(toNick))
	} else {
		msg = xmpp.NewMessageType(uuid.New().String(), xmpp.GroupChatType)
		msg.SetToJID(r.roomJID)
	}
	bodyElem := xmpp.NewElementName("body")
	bodyElem.SetText(body)
	msg.AppendElement(bodyElem)
	r.router.SendStanzaOut(msg)
	return nil
}

// SendSubject requests a room subject change.
func (r *Room) SendSubject(subject string) error {
	if r.State() != OpenState {
		return ErrRoomNotOpen
	}
	msg := xmpp.NewMessageType(uuid.New().String(), xmpp.GroupChatType)
	msg.SetToJID(r.roomJID)
	subjectElem := xmpp.NewElementName("subject")
	subjectElem.SetText(subject)
	msg.AppendElement(subjectElem)
	r.router.SendStanzaOut(msg)
	return nil
}

// SendInvitation sends a mediated room invitation to a contact.
func (r *Room) SendInvitation(contact *jid.JID, reason string) error {
	if r.State() != OpenState {
		return ErrRoomNotOpen
	}
	inviteElem := xmpp.NewElementName("invite")
	inviteElem.SetAttribute("to", contact.ToBareJID().String())
	if len(reason) > 0 {
		reasonElem := xmpp.NewElementName("reason")
		reasonElem.SetText(reason)
		inviteElem.AppendElement(reasonElem)
	}
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	x.AppendElement(inviteElem)

	msg := xmpp.NewMessageType(uuid.New().String(), xmpp.NormalType)
	msg.SetToJID(r.roomJID)
	msg.AppendElement(x)
	r.router.SendStanzaOut(msg)
	return nil
}

// DeclineInvitation declines a previously received room invitation.
// Declining doesn't require having joined the room.
func (r *Room) DeclineInvitation(contact *jid.JID, reason string) error {
	declineElem := xmpp.NewElementName("decline")
	declineElem.SetAttribute("to", contact.ToBareJID().String())
	if len(reason) > 0 {
		reasonElem := xmpp.NewElementName("reason")
		reasonElem.SetText(reason)
		declineElem.AppendElement(reasonElem)
	}
	x := xmpp.NewElementNamespace("x", mucUserNamespace)
	x.AppendElement(declineElem)

	msg := xmpp.NewMessageType(uuid.New().String(), xmpp.NormalType)
	msg.SetToJID(r.roomJID)
	msg.AppendElement(x)
	r.router.SendStanzaOut(msg)
	return nil
}

// SendVoiceRequest asks the room moderators for voice.
func (r *Room) SendVoiceRequest() error {
	if r.State() != OpenState {
		return ErrRoomNotOpen
	}
	form := &xep0004.DataForm{Type: xep0004.Submit}
	form.Fields = append(form.Fields, xep0004.Field{
		Var:    xep0004.FormType,
		Type:   xep0004.Hidden,
		Values: []string{voiceRequestFormType},
	})
	form.Fields = append(form.Fields, xep0004.Field{
		Var:    "muc#role",
		Type:   xep0004.ListSingle,
		Values: []string{ParticipantRole},
	})
	msg := xmpp.NewMessageType(uuid.New().String(), xmpp.NormalType)
	msg.SetToJID(r.roomJID)
	msg.AppendElement(form.Element())
	r.router.SendStanzaOut(msg)
	return nil
}

// SendVoiceApproval submits a filled voice request approval form back
// to the room.
func (r *Room) SendVoiceApproval(form *xep0004.DataForm) error {
	if r.State() != OpenState {
		return ErrRoomNotOpen
	}
	form.Type = xep0004.Submit
	msg := xmpp.NewMessageType(uuid.New().String(), xmpp.NormalType)
	msg.SetToJID(r.roomJID)
	msg.AppendElement(form.Element())
	r.router.SendStanzaOut(msg)
	return nil
}

// SetUserRole requests a role change for a room occupant. The returned
// identifier matches the one announced on request completion.
func (r *Room) SetUserRole(nick, role, reason string) (string, error) {
	if len(nick) == 0 {
		return "", ErrMissingNickname
	}
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("nick", nick)
	itemElem.SetAttribute("role", role)
	appendReason(itemElem, reason)

	iq := r.adminIQ(xmpp.SetType, mucAdminNamespace, itemElem)
	return r.trackRequest(iq, adminRequestTimeout, &pendingRequest{
		kind: roleRequest,
		nick: nick,
		role: role,
	})
}

// KickOccupant kicks an occupant out of the room.
func (r *Room) KickOccupant(nick, reason string) (string, error) {
	return r.SetUserRole(nick, NoneRole, reason)
}

// SetUserAffiliation requests an affiliation change for a user.
func (r *Room) SetUserAffiliation(contact *jid.JID, affiliation, reason string) (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("jid", contact.ToBareJID().String())
	itemElem.SetAttribute("affiliation", affiliation)
	appendReason(itemElem, reason)

	iq := r.adminIQ(xmpp.SetType, mucAdminNamespace, itemElem)
	return r.trackRequest(iq, adminRequestTimeout, &pendingRequest{
		kind:        affiliationRequest,
		affiliation: affiliation,
	})
}

// BanOccupant bans a user from the room.
func (r *Room) BanOccupant(contact *jid.JID, reason string) (string, error) {
	return r.SetUserAffiliation(contact, OutcastAffiliation, reason)
}

// LoadAffiliationList requests the room list of users holding an affiliation.
// The entries are attached to the request completed hook payload.
func (r *Room) LoadAffiliationList(affiliation string) (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	itemElem := xmpp.NewElementName("item")
	itemElem.SetAttribute("affiliation", affiliation)

	iq := r.adminIQ(xmpp.GetType, mucAdminNamespace, itemElem)
	return r.trackRequest(iq, listRequestTimeout, &pendingRequest{
		kind:        affiliationListRequest,
		affiliation: affiliation,
	})
}

// UpdateAffiliationList submits a batch of affiliation changes.
func (r *Room) UpdateAffiliationList(items []AffiliationItem) (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	queryElem := xmpp.NewElementNamespace("query", mucAdminNamespace)
	for _, item := range items {
		itemElem := xmpp.NewElementName("item")
		if item.JID != nil {
			itemElem.SetAttribute("jid", item.JID.ToBareJID().String())
		}
		itemElem.SetAttribute("affiliation", item.Affiliation)
		appendReason(itemElem, item.Reason)
		queryElem.AppendElement(itemElem)
	}
	iq := xmpp.NewIQType("", xmpp.SetType)
	iq.SetToJID(r.roomJID)
	iq.AppendElement(queryElem)
	return r.trackRequest(iq, listRequestTimeout, &pendingRequest{
		kind: affiliationListUpdateRequest,
	})
}

// LoadRoomConfig requests the room configuration form. The form is attached
// to the request completed hook payload.
func (r *Room) LoadRoomConfig() (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	iq := xmpp.NewIQType("", xmpp.GetType)
	iq.SetToJID(r.roomJID)
	iq.AppendElement(xmpp.NewElementNamespace("query", mucOwnerNamespace))
	return r.trackRequest(iq, adminRequestTimeout, &pendingRequest{
		kind: roomConfigRequest,
	})
}

// UpdateRoomConfig submits a filled room configuration form.
func (r *Room) UpdateRoomConfig(form *xep0004.DataForm) (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	form.Type = xep0004.Submit
	queryElem := xmpp.NewElementNamespace("query", mucOwnerNamespace)
	queryElem.AppendElement(form.Element())

	iq := xmpp.NewIQType("", xmpp.SetType)
	iq.SetToJID(r.roomJID)
	iq.AppendElement(queryElem)
	return r.trackRequest(iq, adminRequestTimeout, &pendingRequest{
		kind: roomConfigUpdateRequest,
	})
}

// DestroyRoom asks the service to destroy the room. The room teardown itself
// is announced through the room destroyed hook once the service confirms it.
func (r *Room) DestroyRoom(reason string) (string, error) {
	if r.State() != OpenState {
		return "", ErrRoomNotOpen
	}
	destroyElem := xmpp.NewElementName("destroy")
	destroyElem.SetAttribute("jid", r.roomJID.String())
	appendReason(destroyElem, reason)

	queryElem := xmpp.NewElementNamespace("query", mucOwnerNamespace)
	queryElem.AppendElement(destroyElem)

	iq := xmpp.NewIQType("", xmpp.SetType)
	iq.SetToJID(r.roomJID)
	iq.AppendElement(queryElem)
	return r.trackRequest(iq, adminRequestTimeout, &pendingRequest{
		kind: destroyRequest,
	})
}

func (r *Room) adminIQ(iqType, namespace string, itemElem xmpp.XElement) *xmpp.IQ {
	queryElem := xmpp.NewElementNamespace("query", namespace)
	queryElem.AppendElement(itemElem)
	iq := xmpp.NewIQType("", iqType)
	iq.SetToJID(r.roomJID)
	iq.AppendElement(queryElem)
	return iq
}

// trackRequest reserves the request identifier before transmission, so a
// fast response can't race the pending table insert.
func (r *Room) trackRequest(iq *xmpp.IQ, timeout time.Duration, req *pendingRequest) (string, error) {
	reqID := uuid.New().String()
	iq.SetID(reqID)

	r.mu.Lock()
	r.pending[reqID] = req
	r.mu.Unlock()

	sentID := r.router.SendStanzaRequest(iq, timeout, func(response xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
		r.resolveRequest(reqID, response, stanzaErr)
	})
	if len(sentID) == 0 {
		r.mu.Lock()
		delete(r.pending, reqID)
		r.mu.Unlock()
		return "", ErrStreamOffline
	}
	return reqID, nil
}

func (r *Room) resolveRequest(reqID string, response xmpp.Stanza, stanzaErr *xmpp.StanzaError) {
	r.mu.Lock()
	req, ok := r.pending[reqID]
	if ok {
		delete(r.pending, reqID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	inf := &ResultInfo{
		RoomJID:     r.roomJID,
		RequestID:   reqID,
		Kind:        req.kind.String(),
		Nick:        req.nick,
		Role:        req.role,
		Affiliation: req.affiliation,
		Err:         stanzaErr,
	}
	if stanzaErr == nil {
		switch req.kind {
		case affiliationListRequest:
			inf.Items = parseAffiliationItems(response)
		case roomConfigRequest:
			inf.Form = parseConfigForm(response)
		}
	} else {
		log.Debugf("muc: %s request %s to %s failed: %v", inf.Kind, reqID, r.roomJID, stanzaErr)
	}
	r.runRoomHook(hook.RoomRequestCompleted, inf)
}

func parseAffiliationItems(response xmpp.Stanza) []AffiliationItem {
	queryElem := response.Elements().ChildNamespace("query", mucAdminNamespace)
	if queryElem == nil {
		return nil
	}
	var items []AffiliationItem
	for _, itemElem := range queryElem.Elements().Children("item") {
		item := AffiliationItem{
			Affiliation: itemElem.Attributes().Get("affiliation"),
			Nick:        itemElem.Attributes().Get("nick"),
		}
		if jidStr := itemElem.Attributes().Get("jid"); len(jidStr) > 0 {
			if j, err := jid.NewWithString(jidStr, true); err == nil {
				item.JID = j
			}
		}
		if reasonElem := itemElem.Elements().Child("reason"); reasonElem != nil {
			item.Reason = reasonElem.Text()
		}
		items = append(items, item)
	}
	return items
}

func parseConfigForm(response xmpp.Stanza) *xep0004.DataForm {
	queryElem := response.Elements().ChildNamespace("query", mucOwnerNamespace)
	if queryElem == nil {
		return nil
	}
	formElem := queryElem.Elements().ChildNamespace("x", xep0004.FormNamespace)
	if formElem == nil {
		return nil
	}
	form, err := xep0004.NewFormFromElement(formElem)
	if err != nil {
		log.Warnf("muc: discarded malformed room config form: %v", err)
		return nil
	}
	return form
}

func (r *Room) processPresence(stanza xmpp.Stanza) bool {
	presence, ok := stanza.(*xmpp.Presence)
	if !ok {
		return false
	}
	from := presence.FromJID()
	if from == nil || !from.Matches(r.roomJID, jid.MatchesBare) {
		return false
	}
	switch presence.Type() {
	case xmpp.AvailableType:
		return r.processAvailablePresence(presence)
	case xmpp.UnavailableType:
		return r.processUnavailablePresence(presence)
	case xmpp.ErrorType:
		return r.processErrorPresence(presence)
	default:
		return false
	}
}

func (r *Room) processAvailablePresence(presence *xmpp.Presence) bool {
	nick := presence.FromJID().Resource()
	if len(nick) == 0 {
		return false
	}
	x := presence.Elements().ChildNamespace("x", mucUserNamespace)
	codes := statusCodes(x)

	var role, affiliation string
	var realJID *jid.JID
	if x != nil {
		if itemElem := x.Elements().Child("item"); itemElem != nil {
			role = itemElem.Attributes().Get("role")
			affiliation = itemElem.Attributes().Get("affiliation")
			if jidStr := itemElem.Attributes().Get("jid"); len(jidStr) > 0 {
				realJID, _ = jid.NewWithString(jidStr, true)
			}
		}
	}
	timestamp, hasDelay := xmpp.DelayTimestamp(presence)
	if !hasDelay {
		timestamp = time.Now()
	}

	r.mu.Lock()
	if r.state == ClosedState {
		r.mu.Unlock()
		return false
	}
	occ := r.occupants[nick]
	created := occ == nil
	if created {
		occ = &Occupant{nick: nick}
		r.occupants[nick] = occ
	}
	if len(role) > 0 {
		occ.role = role
	}
	if len(affiliation) > 0 {
		occ.affiliation = affiliation
	}
	if realJID != nil {
		occ.realJID = realJID
	}
	occ.show = presence.ShowState()
	occ.status = presence.Status()
	occ.priority = presence.Priority()
	occ.updatedAt = timestamp

	var opened bool
	if r.state == ConnectingState && (hasStatusCode(codes, statusSelfPresence) || nick == r.nickname) {
		// the service assigned nickname is authoritative
		r.state = OpenState
		r.selfNick = nick
		r.nickname = nick
		opened = true
	}
	isSelf := nick == r.selfNick
	r.mu.Unlock()

	inf := &hook.RoomInfo{
		RoomJID:     r.roomJID,
		Nick:        nick,
		RealJID:     realJID,
		IsSelf:      isSelf,
		StatusCodes: codes,
		Element:     presence,
		Timestamp:   timestamp,
	}
	if opened {
		log.Infof("muc: room %s opened as %s", r.roomJID, nick)
		r.runRoomHook(hook.RoomOpened, inf)
	}
	if created {
		r.runRoomHook(hook.OccupantJoined, inf)
	} else {
		r.runRoomHook(hook.OccupantUpdated, inf)
	}
	return true
}

func (r *Room) processUnavailablePresence(presence *xmpp.Presence) bool {
	nick := presence.FromJID().Resource()
	x := presence.Elements().ChildNamespace("x", mucUserNamespace)
	codes := statusCodes(x)

	var newNick, actorNick, reason string
	var destroyElem xmpp.XElement
	if x != nil {
		if itemElem := x.Elements().Child("item"); itemElem != nil {
			newNick = itemElem.Attributes().Get("nick")
			if actorElem := itemElem.Elements().Child("actor"); actorElem != nil {
				actorNick = actorElem.Attributes().Get("nick")
			}
			if reasonElem := itemElem.Elements().Child("reason"); reasonElem != nil {
				reason = reasonElem.Text()
			}
		}
		destroyElem = x.Elements().Child("destroy")
	}
	switch {
	case destroyElem != nil:
		return r.processDestroyed(destroyElem, presence)
	case hasStatusCode(codes, statusNickChanged):
		return r.processNickChange(nick, newNick, codes, presence)
	case hasStatusCode(codes, statusKicked):
		return r.processRemoval(hook.OccupantKicked, nick, actorNick, reason, codes, presence)
	case hasStatusCode(codes, statusBanned):
		return r.processRemoval(hook.OccupantBanned, nick, actorNick, reason, codes, presence)
	default:
		return r.processDeparture(nick, codes, presence)
	}
}

func (r *Room) processDestroyed(destroyElem xmpp.XElement, presence *xmpp.Presence) bool {
	var reason string
	if reasonElem := destroyElem.Elements().Child("reason"); reasonElem != nil {
		reason = reasonElem.Text()
	}
	r.mu.Lock()
	if r.state == ClosedState {
		r.mu.Unlock()
		return false
	}
	r.occupants = make(map[string]*Occupant)
	r.selfNick = ""
	r.state = ClosedState
	r.mu.Unlock()

	log.Infof("muc: room %s destroyed", r.roomJID)
	r.runRoomHook(hook.RoomDestroyed, &hook.RoomInfo{
		RoomJID: r.roomJID,
		Reason:  reason,
		Element: presence,
	})
	return true
}

func (r *Room) processNickChange(nick, newNick string, codes []int, presence *xmpp.Presence) bool {
	if len(newNick) == 0 {
		return false
	}
	r.mu.Lock()
	occ := r.occupants[nick]
	if occ == nil {
		r.mu.Unlock()
		return false
	}
	// a stale entry under the target nickname is evicted: the service
	// guarantees nickname uniqueness
	_, evicted := r.occupants[newNick]
	delete(r.occupants, newNick)
	delete(r.occupants, nick)
	occ.nick = newNick
	occ.updatedAt = time.Now()
	r.occupants[newNick] = occ

	isSelf := nick == r.selfNick
	if isSelf {
		r.selfNick = newNick
		r.nickname = newNick
	}
	r.mu.Unlock()

	if evicted {
		r.runRoomHook(hook.OccupantLeft, &hook.RoomInfo{
			RoomJID: r.roomJID,
			Nick:    newNick,
		})
	}
	r.runRoomHook(hook.OccupantNickChanged, &hook.RoomInfo{
		RoomJID:     r.roomJID,
		Nick:        nick,
		NewNick:     newNick,
		IsSelf:      isSelf,
		StatusCodes: codes,
		Element:     presence,
	})
	if isSelf {
		// re-assert own presence under the new occupant JID
		r.router.SendStanzaOut(r.selfPresence(newNick))
	}
	return true
}

func (r *Room) processRemoval(hookName, nick, actorNick, reason string, codes []int, presence *xmpp.Presence) bool {
	r.mu.Lock()
	if r.state == ClosedState {
		r.mu.Unlock()
		return false
	}
	delete(r.occupants, nick)
	isSelf := nick == r.selfNick
	if isSelf {
		r.occupants = make(map[string]*Occupant)
		r.selfNick = ""
		r.state = ClosedState
	}
	r.mu.Unlock()

	r.runRoomHook(hookName, &hook.RoomInfo{
		RoomJID:     r.roomJID,
		Nick:        nick,
		IsSelf:      isSelf,
		ActorNick:   actorNick,
		Reason:      reason,
		StatusCodes: codes,
		Element:     presence,
	})
	if isSelf {
		r.runRoomHook(hook.RoomClosed, &hook.RoomInfo{
			RoomJID: r.roomJID,
			Reason:  reason,
		})
	}
	return true
}

func (r *Room) processDeparture(nick string, codes []int, presence *xmpp.Presence) bool {
	r.mu.Lock()
	if r.state == ClosedState {
		r.mu.Unlock()
		return false
	}
	occ := r.occupants[nick]
	isSelf := nick == r.selfNick || hasStatusCode(codes, statusSelfPresence)
	if occ == nil && !isSelf {
		r.mu.Unlock()
		return false
	}
	delete(r.occupants, nick)
	if isSelf {
		r.occupants = make(map[string]*Occupant)
		r.selfNick = ""
		r.state = ClosedState
	}
	r.mu.Unlock()

	r.runRoomHook(hook.OccupantLeft, &hook.RoomInfo{
		RoomJID:     r.roomJID,
		Nick:        nick,
		IsSelf:      isSelf,
		Reason:      presence.Status(),
		StatusCodes: codes,
		Element:     presence,
	})
	if isSelf {
		log.Infof("muc: left room %s", r.roomJID)
		r.runRoomHook(hook.RoomClosed, &hook.RoomInfo{RoomJID: r.roomJID})
	}
	return true
}

func (r *Room) processErrorPresence(presence *xmpp.Presence) bool {
	nick := presence.FromJID().Resource()
	stanzaErr := xmpp.NewStanzaErrorFromStanza(presence)

	r.mu.Lock()
	if r.state == ClosedState || (len(nick) > 0 && nick != r.nickname && nick != r.selfNick) {
		r.mu.Unlock()
		return false
	}
	wasOpen := r.state == OpenState
	r.lastErr = stanzaErr
	r.occupants = make(map[string]*Occupant)
	r.selfNick = ""
	r.state = ClosedState
	r.mu.Unlock()

	log.Debugf("muc: room %s rejected own presence: %v", r.roomJID, stanzaErr)
	r.runRoomHook(hook.RoomFailure, &hook.RoomInfo{
		RoomJID: r.roomJID,
		Nick:    nick,
		Element: presence,
		Err:     stanzaErr,
	})
	if wasOpen {
		r.runRoomHook(hook.RoomClosed, &hook.RoomInfo{RoomJID: r.roomJID, Err: stanzaErr})
	}
	return true
}

func (r *Room) processMessage(stanza xmpp.Stanza) bool {
	msg, ok := stanza.(*xmpp.Message)
	if !ok {
		return false
	}
	from := msg.FromJID()
	if from == nil || !from.Matches(r.roomJID, jid.MatchesBare) {
		return false
	}
	if msg.Type() == xmpp.ErrorType {
		return false
	}
	nick := from.Resource()

	// service originated payloads arrive from the bare room JID
	if len(nick) == 0 && r.processServiceMessage(msg) {
		return true
	}
	if msg.IsGroupChat() && msg.Elements().Child("subject") != nil && msg.Elements().Child("body") == nil {
		r.processSubjectChange(nick, msg)
		return true
	}
	if r.isIsolated() {
		r.runRoomHook(hook.RoomMessageReceived, &hook.RoomInfo{
			RoomJID:   r.roomJID,
			Nick:      nick,
			Element:   msg,
			Timestamp: msg.Timestamp(time.Now()),
		})
		return true
	}
	return false
}

func (r *Room) processServiceMessage(msg *xmpp.Message) bool {
	if x := msg.Elements().ChildNamespace("x", mucUserNamespace); x != nil {
		if inviteElem := x.Elements().Child("invite"); inviteElem != nil {
			r.processInvitation(inviteElem, x, msg)
			return true
		}
		if declineElem := x.Elements().Child("decline"); declineElem != nil {
			r.processDecline(declineElem, msg)
			return true
		}
	}
	if formElem := msg.Elements().ChildNamespace("x", xep0004.FormNamespace); formElem != nil {
		form, err := xep0004.NewFormFromElement(formElem)
		if err == nil && form.Fields.ValueForFieldOfType(xep0004.FormType, xep0004.Hidden) == voiceRequestFormType {
			r.runRoomHook(hook.RoomVoiceRequested, &hook.RoomInfo{
				RoomJID: r.roomJID,
				Nick:    form.Fields.ValueForField("muc#roomnick"),
				Element: formElem,
			})
			return true
		}
	}
	return false
}

func (r *Room) processInvitation(inviteElem, x xmpp.XElement, msg *xmpp.Message) {
	inf := &hook.RoomInfo{
		RoomJID:   r.roomJID,
		Element:   msg,
		Timestamp: msg.Timestamp(time.Now()),
	}
	if fromStr := inviteElem.Attributes().Get("from"); len(fromStr) > 0 {
		inf.RealJID, _ = jid.NewWithString(fromStr, true)
	}
	if reasonElem := inviteElem.Elements().Child("reason"); reasonElem != nil {
		inf.Reason = reasonElem.Text()
	}
	if passwordElem := x.Elements().Child("password"); passwordElem != nil {
		r.mu.Lock()
		r.password = passwordElem.Text()
		r.mu.Unlock()
	}
	r.runRoomHook(hook.RoomInvitationReceived, inf)
}

func (r *Room) processDecline(declineElem xmpp.XElement, msg *xmpp.Message) {
	inf := &hook.RoomInfo{
		RoomJID: r.roomJID,
		Element: msg,
	}
	if fromStr := declineElem.Attributes().Get("from"); len(fromStr) > 0 {
		inf.RealJID, _ = jid.NewWithString(fromStr, true)
	}
	if reasonElem := declineElem.Elements().Child("reason"); reasonElem != nil {
		inf.Reason = reasonElem.Text()
	}
	r.runRoomHook(hook.RoomInvitationDeclined, inf)
}

func (r *Room) processSubjectChange(nick string, msg *xmpp.Message) {
	subject := msg.Subject()
	r.mu.Lock()
	changed := subject != r.subject
	r.subject = subject
	r.mu.Unlock()
	if !changed {
		return
	}
	r.runRoomHook(hook.RoomSubjectChanged, &hook.RoomInfo{
		RoomJID:   r.roomJID,
		Nick:      nick,
		Reason:    subject,
		Element:   msg,
		Timestamp: msg.Timestamp(time.Now()),
	})
}

func (r *Room) onOwnPresenceUpdated(execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.PresenceInfo)
	if !ok {
		return nil
	}
	r.mu.RLock()
	auto := r.autoPresence
	state := r.state
	nick := r.selfNick
	if len(nick) == 0 {
		nick = r.nickname
	}
	r.mu.RUnlock()
	if !auto {
		return nil
	}
	if state == ClosedState {
		// becoming available pulls the room back in; while unavailable
		// there is nothing to mirror
		if inf.Presence.IsAvailable() {
			if err := r.Join(); err != nil {
				log.Warnf("muc: mirrored join of room %s failed: %v", r.roomJID, err)
			}
		}
		return nil
	}
	// mirroring an unavailable presence announces the departure
	r.router.SendStanzaOut(r.selfPresence(nick))
	return nil
}

func (r *Room) onDiscoInfoReceived(execCtx *hook.ExecutionContext) error {
	inf := execCtx.Info.(*hook.DiscoInfo)
	if inf.Err != nil || inf.Entity == nil || !inf.Entity.Matches(r.roomJID, jid.MatchesBare) {
		return nil
	}
	info := r.disco.Info(inf.Entity)
	if info == nil {
		return nil
	}
	var name string
	for _, identity := range info.Identities {
		if identity.Category == "conference" && len(identity.Name) > 0 {
			name = identity.Name
			break
		}
	}
	if len(name) == 0 {
		return nil
	}
	r.mu.Lock()
	changed := name != r.name
	r.name = name
	r.mu.Unlock()
	if changed {
		r.runRoomHook(hook.RoomNameChanged, &hook.RoomInfo{RoomJID: r.roomJID, Reason: name})
	}
	return nil
}

func (r *Room) onStreamTeardown(execCtx *hook.ExecutionContext) error {
	var err error
	if inf, ok := execCtx.Info.(*hook.StreamInfo); ok {
		err = inf.Err
	}
	r.teardown(err)
	return nil
}

// teardown drops all room state at once. In-flight administrative requests
// are forgotten: the stream correlator guarantees their callbacks won't fire
// after teardown.
func (r *Room) teardown(err error) {
	r.mu.Lock()
	wasActive := r.state != ClosedState
	dropped := len(r.pending)
	r.occupants = make(map[string]*Occupant)
	r.selfNick = ""
	r.state = ClosedState
	r.pending = make(map[string]*pendingRequest)
	r.mu.Unlock()

	if dropped > 0 {
		log.Debugf("muc: dropped %d pending requests on room %s teardown", dropped, r.roomJID)
	}
	if wasActive {
		r.runRoomHook(hook.RoomClosed, &hook.RoomInfo{RoomJID: r.roomJID, Err: err})
	}
}

func (r *Room) isIsolated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isolated
}

func (r *Room) joinPresence(nick string) *xmpp.Presence {
	presence := r.selfPresence(nick)
	if presence.IsUnavailable() {
		presence = xmpp.NewPresence(&jid.JID{}, r.roomJID.WithResource(nick), xmpp.AvailableType)
	}
	r.appendJoinContext(presence)
	return presence
}

// appendJoinContext attaches the muc join element carrying the history policy
// and room password. Callers must hold the room mutex.
func (r *Room) appendJoinContext(presence *xmpp.Presence) {
	x := xmpp.NewElementNamespace("x", mucNamespace)
	if historyElem := r.history.Element(); historyElem != nil {
		x.AppendElement(historyElem)
	}
	if len(r.password) > 0 {
		passwordElem := xmpp.NewElementName("password")
		passwordElem.SetText(r.password)
		x.AppendElement(passwordElem)
	}
	presence.AppendElement(x)
}

func ownPresence(to *jid.JID, presenceType string, show xmpp.ShowState, status string, priority int8) *xmpp.Presence {
	presence := xmpp.NewPresence(&jid.JID{}, to, presenceType)
	if presenceType == xmpp.AvailableType {
		if s := show.String(); len(s) > 0 {
			showElem := xmpp.NewElementName("show")
			showElem.SetText(s)
			presence.AppendElement(showElem)
		}
		priorityElem := xmpp.NewElementName("priority")
		priorityElem.SetText(strconv.Itoa(int(priority)))
		presence.AppendElement(priorityElem)
	}
	if len(status) > 0 {
		statusElem := xmpp.NewElementName("status")
		statusElem.SetText(status)
		presence.AppendElement(statusElem)
	}
	return presence
}

func (r *Room) selfPresence(nick string) *xmpp.Presence {
	to := r.roomJID.WithResource(nick)
	if r.presenceHub != nil {
		return r.presenceHub.BuildPresence(to)
	}
	return xmpp.NewPresence(&jid.JID{}, to, xmpp.AvailableType)
}

func appendReason(elem *xmpp.Element, reason string) {
	if len(reason) == 0 {
		return
	}
	reasonElem := xmpp.NewElementName("reason")
	reasonElem.SetText(reason)
	elem.AppendElement(reasonElem)
}

func (r *Room) runRoomHook(hookName string, inf interface{}) {
	_, err := r.hooks.Run(hookName, &hook.ExecutionContext{
		Info:    inf,
		Sender:  r,
		Context: context.Background(),
	})
	if err != nil {
		log.Errorf("muc: %s hook failed: %v", hookName, err)
	}
}
