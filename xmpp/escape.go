/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import "io"

var (
	escAmp  = []byte("&amp;")
	escLt   = []byte("&lt;")
	escGt   = []byte("&gt;")
	escQuot = []byte("&quot;")
	escApos = []byte("&apos;")
	escTab  = []byte("&#x9;")
	escNl   = []byte("&#xA;")
	escCr   = []byte("&#xD;")
)

// escapeText writes to w the properly escaped XML equivalent of the plain
// text data s. Whitespace characters are additionally escaped in attribute
// values so they survive a round trip.
func escapeText(w io.Writer, s []byte, escapeWhitespace bool) {
	var esc []byte
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			esc = escAmp
		case '<':
			esc = escLt
		case '>':
			esc = escGt
		case '"':
			esc = escQuot
		case '\'':
			esc = escApos
		case '\t':
			if !escapeWhitespace {
				continue
			}
			esc = escTab
		case '\n':
			if !escapeWhitespace {
				continue
			}
			esc = escNl
		case '\r':
			if !escapeWhitespace {
				continue
			}
			esc = escCr
		default:
			continue
		}
		_, _ = w.Write(s[last:i])
		_, _ = w.Write(esc)
		last = i + 1
	}
	_, _ = w.Write(s[last:])
}
