/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func TestConfig_UnmarshalYAML(t *testing.T) {
	var cfg Config
	require.Nil(t, yaml.Unmarshal([]byte("level: debug\nlog_path: /var/log/aether.log"), &cfg))
	require.Equal(t, DebugLevel, cfg.Level)
	require.Equal(t, "/var/log/aether.log", cfg.LogPath)

	require.Nil(t, yaml.Unmarshal([]byte("{}"), &cfg))
	require.Equal(t, InfoLevel, cfg.Level)

	require.NotNil(t, yaml.Unmarshal([]byte("level: verbose"), &cfg))
}
