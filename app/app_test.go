/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package app

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/aether-im/aether/version"
	"github.com/stretchr/testify/require"
)

func TestApplication_ShowVersion(t *testing.T) {
	output := bytes.NewBuffer(nil)
	a := New(output, []string{"aether", "-v"})

	require.Nil(t, a.Run())
	require.Equal(t, fmt.Sprintf("aether version: %v\n", version.ApplicationVersion), output.String())
}

func TestApplication_ShowUsage(t *testing.T) {
	output := bytes.NewBuffer(nil)
	a := New(output, []string{"aether", "-h"})

	require.Nil(t, a.Run())
	require.True(t, strings.Contains(output.String(), "Usage: aether [options]"))
}

func TestConfig_FromBuffer(t *testing.T) {
	buf := bytes.NewBufferString(`
logger:
  level: debug
stream:
  jid: alice@aether.im
  password: letmein
  transport:
    type: socket
    address: aether.im:5222
presence:
  show: dnd
  status: busy
rooms:
  - jid: lobby@muc.aether.im
    nickname: alice
    auto_presence: true
    history:
      no_history: true
`)
	var cfg Config
	require.Nil(t, cfg.FromBuffer(buf))

	require.Equal(t, "alice", cfg.Stream.JID.Node())
	require.Equal(t, "aether.im", cfg.Stream.JID.Domain())
	require.Equal(t, "letmein", cfg.Stream.Password)
	require.Equal(t, "busy", cfg.Presence.Status)
	require.Equal(t, 1, len(cfg.Rooms))
	require.Equal(t, "lobby@muc.aether.im", cfg.Rooms[0].JID)
	require.Equal(t, "alice", cfg.Rooms[0].Nickname)
	require.True(t, cfg.Rooms[0].AutoPresence)
	require.True(t, cfg.Rooms[0].History.NoHistory)
}
