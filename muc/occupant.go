/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"time"

	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

// Occupant represents a room occupant as last announced by the room service.
// Occupant values handed out by a room are snapshots: later room events do
// not mutate them.
type Occupant struct {
	nick        string
	realJID     *jid.JID
	role        string
	affiliation string
	show        xmpp.ShowState
	status      string
	priority    int8
	updatedAt   time.Time
}

// Nick returns the occupant nickname inside the room.
func (o *Occupant) Nick() string {
	return o.nick
}

// RealJID returns the occupant real JID, or nil when the service doesn't
// disclose it.
func (o *Occupant) RealJID() *jid.JID {
	return o.realJID
}

// Role returns the occupant role.
func (o *Occupant) Role() string {
	return o.role
}

// Affiliation returns the occupant affiliation.
func (o *Occupant) Affiliation() string {
	return o.affiliation
}

// ShowState returns the occupant presence show state.
func (o *Occupant) ShowState() xmpp.ShowState {
	return o.show
}

// Status returns the occupant presence status text.
func (o *Occupant) Status() string {
	return o.status
}

// Priority returns the occupant presence priority.
func (o *Occupant) Priority() int8 {
	return o.priority
}

// UpdatedAt returns the instant of the last occupant presence update,
// taking delayed delivery into account.
func (o *Occupant) UpdatedAt() time.Time {
	return o.updatedAt
}

// IsModerator tells whether the occupant holds the moderator role.
func (o *Occupant) IsModerator() bool {
	return o.role == ModeratorRole
}

// HasVoice tells whether the occupant may post messages to the room.
func (o *Occupant) HasVoice() bool {
	return o.role == ModeratorRole || o.role == ParticipantRole
}

// IsOwner tells whether the occupant holds the owner affiliation.
func (o *Occupant) IsOwner() bool {
	return o.affiliation == OwnerAffiliation
}

// IsAdmin tells whether the occupant holds the admin affiliation.
func (o *Occupant) IsAdmin() bool {
	return o.affiliation == AdminAffiliation
}
