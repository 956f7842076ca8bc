// Package config describes a control block layout in YAML and registers
// the channels it lists.
package config

// Config is the root of a layout document.
type Config struct {
	ControlBlock ControlBlockConfig `yaml:"control_block"`
}

// ControlBlockConfig sizes the channel tables and lists the channels.
type ControlBlockConfig struct {
	MaxUpChannels   int             `yaml:"max_up_channels"`
	MaxDownChannels int             `yaml:"max_down_channels"`
	Up              []ChannelConfig `yaml:"up"`
	Down            []ChannelConfig `yaml:"down"`
}

// ChannelConfig describes one channel.
type ChannelConfig struct {
	Name string `yaml:"name"`
	// Index pins the channel to a slot; nil takes the lowest free one.
	Index *int   `yaml:"index"`
	Size  int    `yaml:"size"`
	Mode  string `yaml:"mode"`

	// up channels only
	Shared         bool `yaml:"shared"`
	BlockTimeoutMs int  `yaml:"block_timeout_ms"`
}

// Default sizes used by Normalize.
const (
	DefaultUpSize   = 1024
	DefaultDownSize = 16
	DefaultMode     = "skip"
)

// DefaultConfig is the layout used when no file is given: one terminal
// channel in each direction.
func DefaultConfig() *Config {
	return &Config{
		ControlBlock: ControlBlockConfig{
			Up:   []ChannelConfig{{Name: "Terminal", Size: DefaultUpSize, Mode: DefaultMode}},
			Down: []ChannelConfig{{Name: "Terminal", Size: DefaultDownSize, Mode: DefaultMode}},
		},
	}
}
