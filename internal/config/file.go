package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wagiedev/agent-bridge-go/internal/frame"
)

// TokenEnv is read when neither the file nor flags provide a token.
const TokenEnv = "AGENT_BRIDGE_TOKEN"

// File is the on-disk configuration used by bridgectl.
//
// Durations use Go syntax ("500ms", "30s").
type File struct {
	URL            string            `yaml:"url"`
	Token          string            `yaml:"token"`
	Codec          string            `yaml:"codec"`
	RequestTimeout string            `yaml:"request_timeout"`
	Headers        map[string]string `yaml:"headers"`

	// Command runs the bridge as a child process instead of dialing URL.
	Command []string `yaml:"command"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`

	Reconnect      ReconnectFile     `yaml:"reconnect"`

	// Tools lists bridge actions exposed over MCP.
	Tools []ToolFile `yaml:"tools"`
}

// ReconnectFile mirrors ReconnectPolicy.
type ReconnectFile struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	BaseDelay         string  `yaml:"base_delay"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxDelay          string  `yaml:"max_delay"`
	PingInterval      string  `yaml:"ping_interval"`
}

// ToolFile describes one bridge action exposed as an MCP tool.
type ToolFile struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description"`

	// Properties maps argument names to simple type names
	// ("string", "number", "boolean", "object", "[]string", ...).
	Properties map[string]string `yaml:"properties"`

	Timeout string `yaml:"timeout"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &f, nil
}

// Apply copies the file's settings into o. Fields already set on o win,
// which lets command-line flags override the file.
func (f *File) Apply(o *Options) error {
	if o.URL == "" {
		o.URL = f.URL
	}

	if o.Token == "" {
		o.Token = f.Token
	}

	if len(o.Command) == 0 {
		o.Command = f.Command
	}

	o.Env = append(o.Env, f.Env...)

	if o.Dir == "" {
		o.Dir = f.Dir
	}

	if o.Token == "" {
		o.Token = os.Getenv(TokenEnv)
	}

	if o.Codec == nil && f.Codec != "" {
		codec, err := frame.Lookup(f.Codec)
		if err != nil {
			return err
		}

		o.Codec = codec
	}

	if o.RequestTimeout == 0 {
		d, err := parseDuration("request_timeout", f.RequestTimeout)
		if err != nil {
			return err
		}

		o.RequestTimeout = d
	}

	if len(f.Headers) > 0 && o.Header == nil {
		o.Header = make(map[string][]string, len(f.Headers))
		for k, v := range f.Headers {
			o.Header.Set(k, v)
		}
	}

	if o.Reconnect.MaxAttempts == 0 {
		o.Reconnect.MaxAttempts = f.Reconnect.MaxAttempts
	}

	if o.Reconnect.BackoffMultiplier == 0 {
		o.Reconnect.BackoffMultiplier = f.Reconnect.BackoffMultiplier
	}

	if o.Reconnect.BaseDelay == 0 {
		d, err := parseDuration("reconnect.base_delay", f.Reconnect.BaseDelay)
		if err != nil {
			return err
		}

		o.Reconnect.BaseDelay = d
	}

	if o.Reconnect.MaxDelay == 0 {
		d, err := parseDuration("reconnect.max_delay", f.Reconnect.MaxDelay)
		if err != nil {
			return err
		}

		o.Reconnect.MaxDelay = d
	}

	if o.Reconnect.PingInterval == 0 {
		d, err := parseDuration("reconnect.ping_interval", f.Reconnect.PingInterval)
		if err != nil {
			return err
		}

		o.Reconnect.PingInterval = d
	}

	return nil
}

// ToolTimeout parses the tool's timeout; zero means the client default.
func (t ToolFile) ToolTimeout() (time.Duration, error) {
	return parseDuration("tools."+t.Action+".timeout", t.Timeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}

	return d, nil
}
