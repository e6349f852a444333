/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func TestConfig_UnmarshalYAML(t *testing.T) {
	cfgYAML := `
jid: alice@aether.im/desktop
password: s3cr3t
transport:
  type: socket
  address: aether.im:5222
`
	var cfg Config
	require.Nil(t, yaml.Unmarshal([]byte(cfgYAML), &cfg))
	require.Equal(t, "alice@aether.im/desktop", cfg.JID.String())
	require.Equal(t, "s3cr3t", cfg.Password)
	require.Equal(t, defaultLang, cfg.Lang)
	require.Equal(t, defaultMaxStanzaSize, cfg.MaxStanzaSize)
}

func TestConfig_DefaultResource(t *testing.T) {
	cfgYAML := `
jid: alice@aether.im
password: s3cr3t
transport:
  address: aether.im:5222
`
	var cfg Config
	require.Nil(t, yaml.Unmarshal([]byte(cfgYAML), &cfg))
	require.Equal(t, defaultResource, cfg.JID.Resource())
}

func TestConfig_InvalidJID(t *testing.T) {
	cfgYAML := `
jid: aether.im
transport:
  address: aether.im:5222
`
	var cfg Config
	require.NotNil(t, yaml.Unmarshal([]byte(cfgYAML), &cfg))
}
