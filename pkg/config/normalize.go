package config

// Normalize fills in defaults: channel sizes, the skip mode and table sizes
// large enough for the listed channels. It must run before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	cb := &cfg.ControlBlock
	normalizeChannels(cb.Up, DefaultUpSize)
	normalizeChannels(cb.Down, DefaultDownSize)
	if n := tableSize(cb.Up); n > 0 && n > cb.MaxUpChannels {
		cb.MaxUpChannels = n
	}
	if n := tableSize(cb.Down); n > 0 && n > cb.MaxDownChannels {
		cb.MaxDownChannels = n
	}
}

func normalizeChannels(chs []ChannelConfig, size int) {
	for n := range chs {
		ch := &chs[n]
		if ch.Size == 0 {
			ch.Size = size
		}
		if ch.Mode == "" {
			ch.Mode = DefaultMode
		}
	}
}

// tableSize is the smallest table holding every channel and pinned index.
func tableSize(chs []ChannelConfig) int {
	n := len(chs)
	for _, ch := range chs {
		if ch.Index != nil && *ch.Index >= n {
			n = *ch.Index + 1
		}
	}
	return n
}
