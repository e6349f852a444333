/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"github.com/aether-im/aether/xep0004"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

type requestKind int

const (
	roleRequest requestKind = iota
	affiliationRequest
	affiliationListRequest
	affiliationListUpdateRequest
	roomConfigRequest
	roomConfigUpdateRequest
	destroyRequest
)

func (k requestKind) String() string {
	switch k {
	case roleRequest:
		return "role"
	case affiliationRequest:
		return "affiliation"
	case affiliationListRequest:
		return "affiliation_list"
	case affiliationListUpdateRequest:
		return "affiliation_list_update"
	case roomConfigRequest:
		return "room_config"
	case roomConfigUpdateRequest:
		return "room_config_update"
	case destroyRequest:
		return "destroy"
	}
	return ""
}

// pendingRequest keeps the context of an in-flight administrative request,
// so its resolution can be matched back to what was asked.
type pendingRequest struct {
	kind        requestKind
	nick        string
	role        string
	affiliation string
}

// AffiliationItem is an entry of a room affiliation list.
type AffiliationItem struct {
	// JID is the affected bare JID.
	JID *jid.JID

	// Affiliation is the granted affiliation.
	Affiliation string

	// Nick is the occupant room nickname, when known.
	Nick string

	// Reason carries the change associated reason text.
	Reason string
}

// ResultInfo carries the outcome of a tracked administrative request.
// It is attached to the room request completed hook.
type ResultInfo struct {
	// RoomJID is the bare JID of the room the request was sent to.
	RoomJID *jid.JID

	// RequestID is the identifier returned when the request was submitted.
	RequestID string

	// Kind names the administrative operation the request performed.
	Kind string

	// Nick is the requested occupant nickname, on role changes.
	Nick string

	// Role is the requested role, on role changes.
	Role string

	// Affiliation is the requested affiliation, on affiliation operations.
	Affiliation string

	// Items holds the returned entries, on affiliation list retrievals.
	Items []AffiliationItem

	// Form holds the returned configuration form, on room config retrievals.
	Form *xep0004.DataForm

	// Err is the request associated error: a protocol level error condition
	// on rejection, or remote-server-timeout when no response arrived in time.
	Err *xmpp.StanzaError
}
