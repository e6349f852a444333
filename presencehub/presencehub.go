/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package presencehub

import (
	"context"
	"strconv"
	"sync"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/xmpp"
	"github.com/aether-im/aether/xmpp/jid"
)

// PresenceHub holds the client own global presence: availability, show state,
// status text and priority. Components mirroring the client presence, such as
// rooms in auto-presence mode, subscribe to its update hook.
type PresenceHub struct {
	hooks *hook.Hooks

	mu        sync.RWMutex
	available bool
	show      xmpp.ShowState
	status    string
	priority  int8
}

// New returns an initialized presence hub.
func New(hooks *hook.Hooks) *PresenceHub {
	return &PresenceHub{hooks: hooks}
}

// SetPresence updates own availability presence and announces the change.
func (h *PresenceHub) SetPresence(show xmpp.ShowState, status string, priority int8) {
	h.mu.Lock()
	h.available = true
	h.show = show
	h.status = status
	h.priority = priority
	h.mu.Unlock()

	h.runUpdatedHook()
}

// SetUnavailable marks own presence as unavailable and announces the change.
func (h *PresenceHub) SetUnavailable(status string) {
	h.mu.Lock()
	h.available = false
	h.show = xmpp.AvailableShowState
	h.status = status
	h.priority = 0
	h.mu.Unlock()

	h.runUpdatedHook()
}

// IsAvailable tells whether own presence is available.
func (h *PresenceHub) IsAvailable() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.available
}

// ShowState returns own presence show state.
func (h *PresenceHub) ShowState() xmpp.ShowState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.show
}

// Status returns own presence status text.
func (h *PresenceHub) Status() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Priority returns own presence priority.
func (h *PresenceHub) Priority() int8 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.priority
}

// BuildPresence composes a presence stanza reflecting the hub current state,
// addressed to the given JID.
func (h *PresenceHub) BuildPresence(to *jid.JID) *xmpp.Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()

	presenceType := xmpp.AvailableType
	if !h.available {
		presenceType = xmpp.UnavailableType
	}
	presence := xmpp.NewPresence(&jid.JID{}, to, presenceType)
	if h.available {
		if show := h.show.String(); len(show) > 0 {
			showElem := xmpp.NewElementName("show")
			showElem.SetText(show)
			presence.AppendElement(showElem)
		}
		priorityElem := xmpp.NewElementName("priority")
		priorityElem.SetText(strconv.Itoa(int(h.priority)))
		presence.AppendElement(priorityElem)
	}
	if len(h.status) > 0 {
		statusElem := xmpp.NewElementName("status")
		statusElem.SetText(h.status)
		presence.AppendElement(statusElem)
	}
	return presence
}

func (h *PresenceHub) runUpdatedHook() {
	_, err := h.hooks.Run(hook.OwnPresenceUpdated, &hook.ExecutionContext{
		Info:    &hook.PresenceInfo{Presence: h.BuildPresence(&jid.JID{})},
		Sender:  h,
		Context: context.Background(),
	})
	if err != nil {
		log.Errorf("presencehub: presence updated hook failed: %v", err)
	}
}
