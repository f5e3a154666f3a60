package inquire

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/inquire/default"
)

// Prompt modes.
const (
	ModeAuto     = "auto"
	ModeRemote   = "remote"
	ModeTerminal = "terminal"
)

// Networks understood by the remote transport.
const (
	NetworkTCP       = "tcp"
	NetworkUnix      = "unix"
	NetworkWebSocket = "ws"
)

// Framings understood by stream transports.
const (
	FramingLine = "line"
	FramingRead = "read"
)

// Config represents the user's inquire configuration.
type Config struct {
	Version  int            `toml:"version"`
	Mode     string         `toml:"mode"`
	Remote   RemoteConfig   `toml:"remote"`
	Terminal TerminalConfig `toml:"terminal"`
	Peer     PeerConfig     `toml:"peer"`
}

// RemoteConfig holds connection settings for asking a peer.
type RemoteConfig struct {
	Network       string `toml:"network"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Socket        string `toml:"socket,omitempty"`
	URL           string `toml:"url,omitempty"`
	Bundle        *bool  `toml:"bundle,omitempty"`
	Framing       string `toml:"framing"`
	DialTimeoutMS int    `toml:"dial_timeout_ms,omitempty"`
	ReadTimeoutMS int    `toml:"read_timeout_ms,omitempty"`
}

// TerminalConfig holds settings for the local terminal prompter.
type TerminalConfig struct {
	NoColor *bool `toml:"no_color,omitempty"`
}

// PeerConfig holds settings for the answering side.
type PeerConfig struct {
	Network string `toml:"network"`
	Listen  string `toml:"listen"`
	// Framing defaults to remote.framing so one config serves both ends.
	Framing         string `toml:"framing,omitempty"`
	RememberMinutes int    `toml:"remember_minutes,omitempty"`
}

// Address returns the dial address for stream networks.
func (r RemoteConfig) Address() string {
	if r.Network == NetworkUnix {
		return r.Socket
	}
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Bundled reports whether bundle mode is enabled.
func (r RemoteConfig) Bundled() bool {
	return r.Bundle != nil && *r.Bundle
}

// DialTimeout returns the connect timeout; zero means none.
func (r RemoteConfig) DialTimeout() time.Duration {
	return time.Duration(r.DialTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the bound on waiting for one response; zero means wait forever.
func (r RemoteConfig) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutMS) * time.Millisecond
}

// ConfigDir returns the config directory path.
// Resolution order: $INQUIRE_CONFIG_DIR > $XDG_CONFIG_HOME/inquire > ~/.config/inquire
func ConfigDir() string {
	if dir := os.Getenv("INQUIRE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "inquire")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "inquire-config")
	}
	return filepath.Join(home, ".config", "inquire")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("inquire: invalid embedded default_config.toml: " + err.Error())
	}
	if cfg.Peer.Framing == "" {
		cfg.Peer.Framing = cfg.Remote.Framing
	}
	return &cfg
}

// LoadConfig loads config from the default path or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads config from path, filling missing fields with defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.Remote.Network == "" {
		cfg.Remote.Network = defaults.Remote.Network
	}
	if cfg.Remote.Host == "" {
		cfg.Remote.Host = defaults.Remote.Host
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = defaults.Remote.Port
	}
	if cfg.Remote.Bundle == nil {
		cfg.Remote.Bundle = defaults.Remote.Bundle
	}
	if cfg.Remote.Framing == "" {
		cfg.Remote.Framing = defaults.Remote.Framing
	}
	if cfg.Remote.DialTimeoutMS == 0 {
		cfg.Remote.DialTimeoutMS = defaults.Remote.DialTimeoutMS
	}
	if cfg.Terminal.NoColor == nil {
		cfg.Terminal.NoColor = defaults.Terminal.NoColor
	}
	if cfg.Peer.Network == "" {
		cfg.Peer.Network = defaults.Peer.Network
	}
	if cfg.Peer.Listen == "" {
		cfg.Peer.Listen = defaults.Peer.Listen
	}
	if cfg.Peer.Framing == "" {
		cfg.Peer.Framing = cfg.Remote.Framing
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	switch ResolveMode(cfg) {
	case ModeAuto, ModeRemote, ModeTerminal:
	default:
		warnings = append(warnings, "unknown mode "+strconv.Quote(cfg.Mode)+"; expected auto, remote or terminal")
	}
	remote := ResolveRemote(cfg)
	switch remote.Network {
	case NetworkTCP:
		if remote.Port <= 0 || remote.Port > 65535 {
			warnings = append(warnings, "remote.port "+strconv.Itoa(remote.Port)+" is out of range")
		}
	case NetworkUnix:
		if remote.Socket == "" {
			warnings = append(warnings, "remote.network is unix but remote.socket is empty")
		}
	case NetworkWebSocket:
		if remote.URL == "" {
			warnings = append(warnings, "remote.network is ws but remote.url is empty")
		}
	default:
		warnings = append(warnings, "unknown remote.network "+strconv.Quote(remote.Network))
	}
	if remote.Network != NetworkWebSocket && remote.Framing != FramingLine && remote.Framing != FramingRead {
		warnings = append(warnings, "unknown remote.framing "+strconv.Quote(remote.Framing))
	}
	if cfg.Peer.Framing != "" && cfg.Peer.Framing != FramingLine && cfg.Peer.Framing != FramingRead {
		warnings = append(warnings, "unknown peer.framing "+strconv.Quote(cfg.Peer.Framing))
	}
	if remote.Framing == FramingRead {
		warnings = append(warnings, "framing \"read\" assumes one write arrives as one read; large or fast messages may be split or merged")
	}
	return warnings
}

// ResolveMode returns the prompt mode.
// Priority: $INQUIRE_MODE env > config value.
func ResolveMode(cfg *Config) string {
	if mode := os.Getenv("INQUIRE_MODE"); mode != "" {
		return strings.ToLower(mode)
	}
	if cfg != nil && cfg.Mode != "" {
		return strings.ToLower(cfg.Mode)
	}
	return ModeAuto
}

// ResolveRemote returns the remote settings with environment overrides applied.
// $INQUIRE_NETWORK, $INQUIRE_HOST, $INQUIRE_PORT, $INQUIRE_SOCKET, $INQUIRE_URL
// and $INQUIRE_BUNDLE take priority over config values.
func ResolveRemote(cfg *Config) RemoteConfig {
	var r RemoteConfig
	if cfg != nil {
		r = cfg.Remote
	}
	if v := os.Getenv("INQUIRE_NETWORK"); v != "" {
		r.Network = v
	}
	if v := os.Getenv("INQUIRE_HOST"); v != "" {
		r.Host = v
	}
	if v := os.Getenv("INQUIRE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			r.Port = port
		}
	}
	if v := os.Getenv("INQUIRE_SOCKET"); v != "" {
		r.Socket = v
	}
	if v := os.Getenv("INQUIRE_URL"); v != "" {
		r.URL = v
	}
	if v := os.Getenv("INQUIRE_BUNDLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			r.Bundle = &b
		}
	}
	return r
}

// NoColor returns whether terminal styling is disabled.
// $NO_COLOR set to any value disables color regardless of config.
func NoColor(cfg *Config) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	if cfg == nil || cfg.Terminal.NoColor == nil {
		return false
	}
	return *cfg.Terminal.NoColor
}
