/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package muc

import (
	"strconv"
	"time"

	"github.com/aether-im/aether/xmpp"
)

const historyTimeFormat = "2006-01-02T15:04:05Z"

// HistoryPolicy controls how much discussion history the room service
// sends back right after joining. The zero value leaves the amount up
// to the service.
type HistoryPolicy struct {
	// NoHistory requests no history at all, overriding every limit.
	NoHistory bool `yaml:"no_history"`

	// MaxChars limits history to a total number of characters.
	MaxChars int `yaml:"max_chars"`

	// MaxStanzas limits history to a number of stanzas.
	MaxStanzas int `yaml:"max_stanzas"`

	// Seconds limits history to the messages of the last given seconds.
	Seconds int `yaml:"seconds"`

	// Since limits history to the messages received after a given instant.
	Since time.Time `yaml:"since"`
}

// Element returns the join request history child, or nil when the policy
// leaves history up to the service defaults.
func (p *HistoryPolicy) Element() xmpp.XElement {
	if p.NoHistory {
		historyElem := xmpp.NewElementName("history")
		historyElem.SetAttribute("maxchars", "0")
		return historyElem
	}
	historyElem := xmpp.NewElementName("history")
	var limited bool
	if p.MaxChars > 0 {
		historyElem.SetAttribute("maxchars", strconv.Itoa(p.MaxChars))
		limited = true
	}
	if p.MaxStanzas > 0 {
		historyElem.SetAttribute("maxstanzas", strconv.Itoa(p.MaxStanzas))
		limited = true
	}
	if p.Seconds > 0 {
		historyElem.SetAttribute("seconds", strconv.Itoa(p.Seconds))
		limited = true
	}
	if !p.Since.IsZero() {
		historyElem.SetAttribute("since", p.Since.UTC().Format(historyTimeFormat))
		limited = true
	}
	if !limited {
		return nil
	}
	return historyElem
}
