package config

import (
	"fmt"
	"io"
	"time"

	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/layout"
)

// Channels holds the handles of the registered channels by name.
// Unnamed channels are registered but only reachable by index.
type Channels struct {
	Up     map[string]rtt.UpChannel
	Shared map[string]rtt.SharedUpChannel
	Down   map[string]rtt.DownChannel
}

// Writer returns an io.Writer for the up channel name, shared or not.
func (c *Channels) Writer(name string) (io.Writer, bool) {
	if ch, ok := c.Shared[name]; ok {
		return ch.Writer(), true
	}
	if ch, ok := c.Up[name]; ok {
		return ch.Writer(), true
	}
	return nil, false
}

// Share returns the shared handle of the up channel name. An exclusive
// channel is converted: its handle moves from Up to Shared so every later
// lookup goes through the same gate.
func (c *Channels) Share(name string) (rtt.SharedUpChannel, bool) {
	if ch, ok := c.Shared[name]; ok {
		return ch, true
	}
	up, ok := c.Up[name]
	if !ok {
		return rtt.SharedUpChannel{}, false
	}
	ch := up.Shared(nil)
	delete(c.Up, name)
	c.Shared[name] = ch
	return ch, true
}

// Build normalizes and validates cfg, creates a control block sized by it
// and registers its channels.
func Build(cfg *Config) (*rtt.ControlBlock, *Channels, error) {
	if cfg == nil {
		return nil, nil, ErrNoConfig
	}
	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}
	cb, err := rtt.NewControlBlock(cfg.ControlBlock.MaxUpChannels, cfg.ControlBlock.MaxDownChannels)
	if err != nil {
		return nil, nil, err
	}
	chs, err := Apply(cfg, cb)
	return cb, chs, err
}

// Apply allocates a buffer for every channel in cfg and registers it on cb.
// Channels that fail to register are reported together; the rest stay
// registered. cfg must be normalized.
func Apply(cfg *Config, cb *rtt.ControlBlock) (*Channels, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	chs := &Channels{
		Up:     make(map[string]rtt.UpChannel),
		Shared: make(map[string]rtt.SharedUpChannel),
		Down:   make(map[string]rtt.DownChannel),
	}
	var errs fx.AggregatedError
	// pinned slots first so lowest-free picks cannot take them
	for _, pass := range []bool{true, false} {
		for _, ch := range cfg.ControlBlock.Up {
			if (ch.Index != nil) != pass {
				continue
			}
			errs.Add(chs.registerUp(cb, ch))
		}
		for _, ch := range cfg.ControlBlock.Down {
			if (ch.Index != nil) != pass {
				continue
			}
			errs.Add(chs.registerDown(cb, ch))
		}
	}
	return chs, errs.Aggregate()
}

func slotIndex(ch ChannelConfig) int {
	if ch.Index == nil {
		return -1
	}
	return *ch.Index
}

func (c *Channels) registerUp(cb *rtt.ControlBlock, ch ChannelConfig) error {
	mode, err := layout.ParseMode(ch.Mode)
	if err != nil {
		return fmt.Errorf("up %q: %w", ch.Name, err)
	}
	up, err := cb.RegisterUpAt(slotIndex(ch), ch.Name, make([]byte, ch.Size), mode)
	if err != nil {
		return err
	}
	up = up.WithBlockTimeout(time.Duration(ch.BlockTimeoutMs) * time.Millisecond)
	if ch.Name == "" {
		return nil
	}
	if ch.Shared {
		c.Shared[ch.Name] = up.Shared(nil)
	} else {
		c.Up[ch.Name] = up
	}
	return nil
}

func (c *Channels) registerDown(cb *rtt.ControlBlock, ch ChannelConfig) error {
	mode, err := layout.ParseMode(ch.Mode)
	if err != nil {
		return fmt.Errorf("down %q: %w", ch.Name, err)
	}
	down, err := cb.RegisterDownAt(slotIndex(ch), ch.Name, make([]byte, ch.Size), mode)
	if err != nil {
		return err
	}
	if ch.Name != "" {
		c.Down[ch.Name] = down
	}
	return nil
}
