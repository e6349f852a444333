/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package app

import (
	"bytes"
	"io/ioutil"

	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/muc"
	"github.com/aether-im/aether/stream"
	"github.com/aether-im/aether/xmpp"
	"gopkg.in/yaml.v2"
)

// debugConfig represents debug server configuration.
type debugConfig struct {
	Port int `yaml:"port"`
}

// presenceConfig represents the initial presence announced once online.
type presenceConfig struct {
	Show     string `yaml:"show"`
	Status   string `yaml:"status"`
	Priority int8   `yaml:"priority"`
}

func (c *presenceConfig) showState() xmpp.ShowState {
	switch c.Show {
	case "away":
		return xmpp.AwayShowState
	case "chat":
		return xmpp.ChatShowState
	case "dnd":
		return xmpp.DoNotDisturbShowState
	case "xa":
		return xmpp.ExtendedAwayShowState
	}
	return xmpp.AvailableShowState
}

// RoomConfig binds a room JID to its engine configuration.
type RoomConfig struct {
	JID        string `yaml:"jid"`
	muc.Config `yaml:",inline"`
}

// Config represents a global configuration.
type Config struct {
	PIDFile  string         `yaml:"pid_path"`
	Debug    debugConfig    `yaml:"debug"`
	Logger   log.Config     `yaml:"logger"`
	Stream   stream.Config  `yaml:"stream"`
	Presence presenceConfig `yaml:"presence"`
	Rooms    []RoomConfig   `yaml:"rooms"`
}

// FromFile loads default global configuration from
// a specified file.
func (cfg *Config) FromFile(configFile string) error {
	b, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

// FromBuffer loads default global configuration from
// a specified byte buffer.
func (cfg *Config) FromBuffer(buf *bytes.Buffer) error {
	return yaml.Unmarshal(buf.Bytes(), cfg)
}
