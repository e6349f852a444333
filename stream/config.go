/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"fmt"
	"time"

	"github.com/aether-im/aether/transport"
	"github.com/aether-im/aether/transport/compress"
	"github.com/aether-im/aether/xmpp/jid"
)

const (
	defaultTransportConnectTimeout = time.Duration(5) * time.Second
	defaultTransportKeepAlive      = time.Duration(30) * time.Second
	defaultMaxStanzaSize           = 32768
	defaultLang                    = "en"
	defaultResource                = "aether"
)

// TransportConfig represents a stream transport configuration.
type TransportConfig struct {
	Type           transport.Type
	Address        string
	URL            string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

type transportProxyType struct {
	Type           string `yaml:"type"`
	Address        string `yaml:"address"`
	URL            string `yaml:"url"`
	KeepAlive      int    `yaml:"keep_alive"`
	ConnectTimeout int    `yaml:"connect_timeout"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (c *TransportConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := transportProxyType{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	switch p.Type {
	case "", "socket":
		c.Type = transport.Socket
		if len(p.Address) == 0 {
			return fmt.Errorf("stream.TransportConfig: address value not set")
		}
	case "websocket":
		c.Type = transport.WebSocket
		if len(p.URL) == 0 {
			return fmt.Errorf("stream.TransportConfig: url value not set")
		}
	default:
		return fmt.Errorf("stream.TransportConfig: unrecognized transport type: %s", p.Type)
	}
	c.Address = p.Address
	c.URL = p.URL
	c.KeepAlive = time.Duration(p.KeepAlive) * time.Second
	if c.KeepAlive == 0 {
		c.KeepAlive = defaultTransportKeepAlive
	}
	c.ConnectTimeout = time.Duration(p.ConnectTimeout) * time.Second
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultTransportConnectTimeout
	}
	return nil
}

// Config represents a client stream configuration.
type Config struct {
	JID           *jid.JID
	Password      string
	Lang          string
	MaxStanzaSize int
	Compression   compress.Level
	SkipTLSVerify bool
	Transport     TransportConfig
}

type configProxyType struct {
	JID           string          `yaml:"jid"`
	Password      string          `yaml:"password"`
	Lang          string          `yaml:"lang"`
	MaxStanzaSize int             `yaml:"max_stanza_size"`
	Compression   compress.Level  `yaml:"compression"`
	SkipTLSVerify bool            `yaml:"skip_tls_verify"`
	Transport     TransportConfig `yaml:"transport"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (cfg *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxyType{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	j, err := jid.NewWithString(p.JID, false)
	if err != nil {
		return err
	}
	if j.IsServer() {
		return fmt.Errorf("stream.Config: jid value must contain a node: %s", p.JID)
	}
	if len(j.Resource()) == 0 {
		j = j.WithResource(defaultResource)
	}
	cfg.JID = j
	cfg.Password = p.Password
	cfg.Lang = p.Lang
	if len(cfg.Lang) == 0 {
		cfg.Lang = defaultLang
	}
	cfg.MaxStanzaSize = p.MaxStanzaSize
	if cfg.MaxStanzaSize == 0 {
		cfg.MaxStanzaSize = defaultMaxStanzaSize
	}
	cfg.Compression = p.Compression
	cfg.SkipTLSVerify = p.SkipTLSVerify
	cfg.Transport = p.Transport
	return nil
}
