/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"strconv"

	"github.com/aether-im/aether/xmpp"
	"github.com/pkg/errors"
)

const (
	mucNamespace      = "http://jabber.org/protocol/muc"
	mucUserNamespace  = mucNamespace + "#user"
	mucAdminNamespace = mucNamespace + "#admin"
	mucOwnerNamespace = mucNamespace + "#owner"

	voiceRequestFormType = mucNamespace + "#request"
)

// Occupant roles, as assigned by the room service.
const (
	// ModeratorRole represents a 'moderator' occupant role.
	ModeratorRole = "moderator"

	// ParticipantRole represents a 'participant' occupant role.
	ParticipantRole = "participant"

	// VisitorRole represents a 'visitor' occupant role.
	VisitorRole = "visitor"

	// NoneRole represents a 'none' occupant role.
	NoneRole = "none"
)

// Occupant affiliations, as assigned by the room service.
const (
	// OwnerAffiliation represents an 'owner' occupant affiliation.
	OwnerAffiliation = "owner"

	// AdminAffiliation represents an 'admin' occupant affiliation.
	AdminAffiliation = "admin"

	// MemberAffiliation represents a 'member' occupant affiliation.
	MemberAffiliation = "member"

	// OutcastAffiliation represents an 'outcast' occupant affiliation.
	OutcastAffiliation = "outcast"

	// NoneAffiliation represents a 'none' occupant affiliation.
	NoneAffiliation = "none"
)

// Presence status codes attached by the room service.
const (
	statusSelfPresence = 110
	statusBanned       = 301
	statusNickChanged  = 303
	statusKicked       = 307
)

var (
	// ErrRoomNotOpen will be returned when attempting an operation that
	// requires a fully joined room.
	ErrRoomNotOpen = errors.New("muc: room is not open")

	// ErrAlreadyJoined will be returned when joining a room whose join
	// already started or completed.
	ErrAlreadyJoined = errors.New("muc: room already joined")

	// ErrMissingNickname will be returned when an operation requires a
	// non-empty nickname.
	ErrMissingNickname = errors.New("muc: nickname must not be empty")

	// ErrStreamOffline will be returned when a request couldn't be
	// transmitted because the underlying stream is not online.
	ErrStreamOffline = errors.New("muc: stream is not online")
)

func statusCodes(x xmpp.XElement) []int {
	if x == nil {
		return nil
	}
	var codes []int
	for _, statusElem := range x.Elements().Children("status") {
		code, err := strconv.Atoi(statusElem.Attributes().Get("code"))
		if err != nil {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

func hasStatusCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
