package config

import (
	"errors"
	"fmt"

	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/layout"
)

// ErrNoConfig is returned by Validate for a nil configuration.
var ErrNoConfig = errors.New("no configuration")

// Validate checks a normalized configuration and reports every problem
// found, not just the first. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ErrNoConfig
	}
	var errs fx.AggregatedError
	cb := &cfg.ControlBlock
	if cb.MaxUpChannels < 0 || cb.MaxDownChannels < 0 || cb.MaxUpChannels+cb.MaxDownChannels == 0 {
		errs.Add(fmt.Errorf("control_block: %w: %d up, %d down",
			rtt.ErrInvalidCapacity, cb.MaxUpChannels, cb.MaxDownChannels))
	}
	errs.Add(validateChannels(rtt.Up, cb.Up, cb.MaxUpChannels)...)
	errs.Add(validateChannels(rtt.Down, cb.Down, cb.MaxDownChannels)...)
	return errs.Aggregate()
}

func validateChannels(dir rtt.Direction, chs []ChannelConfig, max int) []error {
	var errs []error
	fail := func(n int, ch ChannelConfig, format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%s[%d] %q: %s", dir, n, ch.Name, fmt.Sprintf(format, args...)))
	}
	names := make(map[string]int)
	pinned := make(map[int]int)
	for n, ch := range chs {
		if ch.Name != "" {
			if prev, ok := names[ch.Name]; ok {
				fail(n, ch, "duplicated name, also used by %s[%d]", dir, prev)
			} else {
				names[ch.Name] = n
			}
		}
		if ch.Index != nil {
			index := *ch.Index
			if index < 0 || index >= max {
				fail(n, ch, "index %d out of range [0, %d)", index, max)
			} else if prev, ok := pinned[index]; ok {
				fail(n, ch, "index %d already taken by %s[%d]", index, dir, prev)
			} else {
				pinned[index] = n
			}
		}
		if ch.Size < 2 {
			fail(n, ch, "size %d: %v", ch.Size, rtt.ErrBufferTooSmall)
		}
		mode, err := layout.ParseMode(ch.Mode)
		if err != nil {
			fail(n, ch, "%v", err)
		}
		if ch.BlockTimeoutMs < 0 {
			fail(n, ch, "negative block_timeout_ms %d", ch.BlockTimeoutMs)
		}
		if dir == rtt.Down {
			if ch.Shared {
				fail(n, ch, "shared applies to up channels only")
			}
			if ch.BlockTimeoutMs != 0 {
				fail(n, ch, "block_timeout_ms applies to up channels only")
			}
		} else if ch.BlockTimeoutMs != 0 && err == nil && mode != layout.ModeBlockIfFull {
			fail(n, ch, "block_timeout_ms requires mode block, got %s", mode)
		}
	}
	if len(chs) > max && max >= 0 {
		errs = append(errs, fmt.Errorf("%s: %d channels listed, table holds %d: %w",
			dir, len(chs), max, rtt.ErrNoSlot))
	}
	return errs
}
