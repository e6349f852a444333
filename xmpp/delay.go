/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"time"
)

const delayNamespace = "urn:xmpp:delay"

const delayTimeFormat = "2006-01-02T15:04:05Z"

// Delay attaches element's Delayed Delivery information.
func (e *Element) Delay(from string, text string) {
	d := NewElementNamespace("delay", delayNamespace)
	if len(from) > 0 {
		d.SetAttribute("from", from)
	}
	d.SetAttribute("stamp", time.Now().UTC().Format(delayTimeFormat))
	if len(text) > 0 {
		d.SetText(text)
	}
	e.AppendElement(d)
}

// DelayTimestamp extracts the delayed delivery stamp attached to an element.
// The second return value reports whether a well-formed delay element was found.
func DelayTimestamp(elem XElement) (time.Time, bool) {
	d := elem.Elements().ChildNamespace("delay", delayNamespace)
	if d == nil {
		return time.Time{}, false
	}
	stamp, err := time.Parse(time.RFC3339, d.Attributes().Get("stamp"))
	if err != nil {
		return time.Time{}, false
	}
	return stamp.Local(), true
}
