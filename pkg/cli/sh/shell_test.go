package sh

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtt.go/pkg/config"
	"github.com/robotalks/rtt.go/pkg/rtt"
)

func newTestShell(t *testing.T) *Shell {
	cfg := &config.Config{ControlBlock: config.ControlBlockConfig{
		MaxUpChannels: 3,
		Up: []config.ChannelConfig{
			{Name: "Terminal", Size: 16},
			{Name: "Log", Size: 16, Shared: true},
		},
		Down: []config.ChannelConfig{{Name: "Terminal", Size: 16}},
	}}
	cb, chs, err := config.Build(cfg)
	require.NoError(t, err)
	return &Shell{CB: cb, Channels: chs}
}

func TestFormatInfo(t *testing.T) {
	tests := []struct {
		info rtt.ChannelInfo
		str  string
	}{
		{rtt.ChannelInfo{Direction: rtt.Up, Index: 2}, "up   2 -"},
		{rtt.ChannelInfo{Direction: rtt.Down, Index: 0, Active: true, Name: "Terminal", Size: 16, Used: 3},
			"down 0 Terminal     skip 3/15"},
		{rtt.ChannelInfo{Direction: rtt.Up, Index: 1, Active: true, Size: 8, Mode: rtt.ModeOverwrite},
			"up   1 (unnamed)    overwrite 0/7"},
	}
	for _, test := range tests {
		t.Run(test.str, func(t *testing.T) {
			require.Equal(t, test.str, FormatInfo(test.info))
		})
	}
}

func TestWriteUp(t *testing.T) {
	s := newTestShell(t)
	n, err := s.WriteUp("Terminal", "hello")
	require.NoError(t, err)
	require.Equal(t, 5, n)
	n, err = s.WriteUp("1", "shared")
	require.NoError(t, err)
	require.Equal(t, 6, n)

	infos := s.CB.Channels()
	require.Equal(t, 5, infos[0].Used)
	require.Equal(t, 6, infos[1].Used)

	_, err = s.WriteUp("2", "inactive")
	require.Error(t, err)
	_, err = s.WriteUp("Missing", "x")
	require.Error(t, err)
}

func TestReadDown(t *testing.T) {
	s := newTestShell(t)
	data, err := s.ReadDown("Terminal", 0)
	require.NoError(t, err)
	require.Empty(t, data)
	_, err = s.ReadDown("Log", 0)
	require.Error(t, err)
}

func TestSetMode(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.SetMode("Terminal", "overwrite"))
	up, ok := s.CB.Up(0)
	require.True(t, ok)
	require.Equal(t, rtt.ModeOverwrite, up.Mode())
	require.Error(t, s.SetMode("Terminal", "fast"))
	require.Error(t, s.SetMode("5", "skip"))
}

type lineSink struct {
	ch chan string
}

func (b *lineSink) Write(p []byte) (int, error) {
	select {
	case b.ch <- string(p):
	default:
	}
	return len(p), nil
}

func TestHeartbeat(t *testing.T) {
	out := &lineSink{ch: make(chan string, 8)}
	h := &Heartbeat{Interval: time.Millisecond, Out: out}
	require.Equal(t, "heartbeat", h.Name())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	require.Equal(t, "tick 1\n", <-out.ch)
	require.Equal(t, "tick 2\n", <-out.ch)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestHeartbeatToChannel(t *testing.T) {
	s := newTestShell(t)
	w, ok := s.Channels.Writer("Terminal")
	require.True(t, ok)
	h := &Heartbeat{Interval: time.Millisecond, Out: w}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, h.Run(ctx), context.DeadlineExceeded)
	// skip mode keeps whole lines only
	used := s.CB.Channels()[0].Used
	require.True(t, used > 0)
	require.Equal(t, 0, used%len("tick 1\n"))
}

func TestWriteUpKeepsBlockTimeout(t *testing.T) {
	cfg := &config.Config{ControlBlock: config.ControlBlockConfig{
		Up: []config.ChannelConfig{{Name: "T", Size: 8, Mode: "block", BlockTimeoutMs: 5}},
	}}
	cb, chs, err := config.Build(cfg)
	require.NoError(t, err)
	s := &Shell{CB: cb, Channels: chs}

	done := make(chan int, 1)
	go func() {
		n, err := s.WriteUp("T", "0123456789")
		if err != nil {
			n = -1
		}
		done <- n
	}()
	select {
	case n := <-done:
		require.Equal(t, 7, n)
	case <-time.After(5 * time.Second):
		t.Fatal("write blocked past the configured timeout")
	}
	require.NoError(t, s.SetMode("T", "skip"))
	require.Equal(t, rtt.ModeNoBlockSkip, chs.Up["T"].Mode())
}

type countingWriter struct {
	out io.Writer
	n   int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return w.out.Write(p)
}

func TestHeartbeatSharesChannelWithShell(t *testing.T) {
	cfg := &config.Config{ControlBlock: config.ControlBlockConfig{
		Up: []config.ChannelConfig{{Name: "Terminal", Size: 1 << 16}},
	}}
	cb, chs, err := config.Build(cfg)
	require.NoError(t, err)
	s := &Shell{CB: cb, Channels: chs}

	hb, err := s.Heartbeat(time.Millisecond, "Terminal")
	require.NoError(t, err)
	_, ok := chs.Up["Terminal"]
	require.False(t, ok)
	_, ok = chs.Shared["Terminal"]
	require.True(t, ok)

	ticks := &countingWriter{out: hb.Out}
	hb.Out = ticks
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hb.Run(ctx) }()

	var written int
	for n := 0; n < 200; n++ {
		line := fmt.Sprintf("line %d\n", n)
		accepted, err := s.WriteUp("Terminal", line)
		require.NoError(t, err)
		require.Equal(t, len(line), accepted)
		written += accepted
		if n%20 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// a lost offset update would leave fewer bytes than both writers sent
	require.Equal(t, written+ticks.n, s.CB.Channels()[0].Used)
}

func TestHeartbeatUnknownChannel(t *testing.T) {
	s := newTestShell(t)
	_, err := s.Heartbeat(time.Second, "Missing")
	require.Error(t, err)
	_, err = (&Shell{CB: s.CB}).Heartbeat(time.Second, "Terminal")
	require.Error(t, err)
}
