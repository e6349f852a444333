/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package hook

import (
	"github.com/aether-im/aether/xmpp/jid"
)

// Discovery hooks.
const (
	// DiscoInfoReceived hook runs when an entity discovery info response arrives.
	DiscoInfoReceived = "disco.info_received"
)

// DiscoInfo contains all information associated to a discovery event.
type DiscoInfo struct {
	// Entity is the JID the discovery info refers to.
	Entity *jid.JID

	// Err is the event associated error, if any.
	Err error
}
