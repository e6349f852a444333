/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package hook

import (
	"time"

	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

// Multi-user chat room hooks.
const (
	// RoomOpened hook runs when own join presence is confirmed and
	// the room becomes fully usable.
	RoomOpened = "room.opened"

	// RoomClosed hook runs when the room stops being usable,
	// either after leaving or after connectivity loss.
	RoomClosed = "room.closed"

	// RoomDestroyed hook runs when the service destroys the room.
	RoomDestroyed = "room.destroyed"

	// RoomFailure hook runs when the service rejects a room operation.
	RoomFailure = "room.failure"

	// RoomNameChanged hook runs when the room display name is resolved
	// or changes through discovery.
	RoomNameChanged = "room.name_changed"

	// RoomRequestCompleted hook runs when a tracked administrative request
	// resolves, successfully or not. It carries a muc result info payload.
	RoomRequestCompleted = "room.request_completed"

	// RoomSubjectChanged hook runs when room subject changes.
	RoomSubjectChanged = "room.subject_changed"

	// RoomMessageReceived hook runs when a groupchat message is received.
	RoomMessageReceived = "room.message_received"

	// RoomInvitationReceived hook runs when a mediated room invitation arrives.
	RoomInvitationReceived = "room.invitation_received"

	// RoomInvitationDeclined hook runs when a previously sent invitation is declined.
	RoomInvitationDeclined = "room.invitation_declined"

	// RoomVoiceRequested hook runs when a voice request approval form arrives.
	RoomVoiceRequested = "room.voice_requested"

	// OccupantJoined hook runs when an occupant enters the room.
	OccupantJoined = "occupant.joined"

	// OccupantUpdated hook runs when an occupant presence or rank changes.
	OccupantUpdated = "occupant.updated"

	// OccupantLeft hook runs when an occupant leaves the room.
	OccupantLeft = "occupant.left"

	// OccupantNickChanged hook runs when an occupant switches nickname.
	OccupantNickChanged = "occupant.nick_changed"

	// OccupantKicked hook runs when an occupant is kicked out of the room.
	OccupantKicked = "occupant.kicked"

	// OccupantBanned hook runs when an occupant is banned from the room.
	OccupantBanned = "occupant.banned"
)

// RoomInfo contains all information associated to a room event.
type RoomInfo struct {
	// RoomJID is the bare JID of the room posting the event.
	RoomJID *jid.JID

	// Nick is the affected occupant nickname, when the event refers to one.
	Nick string

	// NewNick is the occupant new nickname on a nick change event.
	NewNick string

	// RealJID is the affected occupant real JID, when the service discloses it.
	RealJID *jid.JID

	// IsSelf tells whether the affected occupant is the client itself.
	IsSelf bool

	// ActorNick is the nickname of the occupant that caused the event.
	ActorNick string

	// Reason carries the event associated reason or subject text.
	Reason string

	// StatusCodes are the status codes attached to the event presence.
	StatusCodes []int

	// Element is the event associated XML element.
	Element xmpp.XElement

	// Timestamp is the event instant, taking delayed delivery into account.
	Timestamp time.Time

	// Err is the event associated error, if any.
	Err error
}
