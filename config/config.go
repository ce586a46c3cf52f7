// Package config loads the YAML configuration of the sheetclient command.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	sheetnet "github.com/blutspende/go-sheetnet"
	"github.com/blutspende/go-sheetnet/logging"
	"github.com/blutspende/go-sheetnet/protocol"
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Session SessionConfig  `yaml:"session"`
	Client  ClientConfig   `yaml:"client"`
	Serve   ServeConfig    `yaml:"serve"`
	Logging logging.Config `yaml:"logging"`
}

// ServerConfig is where the collaboration server lives. IP takes precedence over Host.
type ServerConfig struct {
	Host string `yaml:"host"`
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type SessionConfig struct {
	User        string `yaml:"user"`
	Spreadsheet string `yaml:"spreadsheet"`
}

type ClientConfig struct {
	// durations are written as "5s", "250ms", ...
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadChunkSize  int           `yaml:"read_chunk_size"`
	// MaxLineLength of a received line in bytes, 0 = unlimited
	MaxLineLength int `yaml:"max_line_length"`
	// SendProxyV2 prefixes the stream with a PROXY protocol v2 header
	SendProxyV2 bool `yaml:"send_proxy_v2"`
	// SocksProxy is host:port of a SOCKS5 gateway
	SocksProxy    string `yaml:"socks_proxy"`
	ProtocolTrace bool   `yaml:"protocol_trace"`
}

// ServeConfig configures the reference server started by "sheetclient serve"
type ServeConfig struct {
	Listen string   `yaml:"listen"`
	Users  []string `yaml:"users"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 1100,
		},
		Session: SessionConfig{
			User:        "sysadmin",
			Spreadsheet: "default",
		},
		Client: ClientConfig{
			ConnectTimeout: sheetnet.DefaultTimingConfiguration.ConnectTimeout,
			WriteTimeout:   sheetnet.DefaultTimingConfiguration.WriteTimeout,
			ReadChunkSize:  sheetnet.DefaultTimingConfiguration.ReadChunkSize,
			MaxLineLength:  1024 * 1024,
			ProtocolTrace:  protocol.TraceEnabledByEnvironment(),
		},
		Serve: ServeConfig{
			Listen: "127.0.0.1:1100",
			Users:  []string{"sysadmin"},
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ClientConfiguration translates the file settings into a connection configuration
func (c *ClientConfig) ClientConfiguration() sheetnet.ClientConfiguration {
	configuration := sheetnet.DefaultClientConfiguration()

	configuration.Timing.ConnectTimeout = c.ConnectTimeout
	configuration.Timing.WriteTimeout = c.WriteTimeout
	if c.ReadChunkSize > 0 {
		configuration.Timing.ReadChunkSize = c.ReadChunkSize
	}
	configuration.LowLevelProtocol = protocol.Line(protocol.DefaultLineProtocolSettings().SetMaxLineLength(c.MaxLineLength))
	if c.SendProxyV2 {
		configuration.Proxy = sheetnet.HAProxySendProxyV2
	}
	configuration.SocksProxy = c.SocksProxy
	configuration.ProtocolTrace = c.ProtocolTrace || protocol.TraceEnabledByEnvironment()

	return configuration
}
