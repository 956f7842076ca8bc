package sh

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rtt.go/pkg/config"
	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/rtt"
)

// Shell provides ishell backed interactive shell over a control block.
// The process itself plays the target; a probe attached to it sees the
// channels the shell writes to.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	CB       *rtt.ControlBlock
	Channels *config.Channels
}

const (
	shellKey = "$shell"
	prompt   = "rtt > "
)

var (
	// flags

	evalOnly         bool
	outputJSON       bool
	heartbeat        time.Duration
	heartbeatChannel = "Terminal"

	// commands
	commands = []*ishell.Cmd{
		&InfoCmd,
		&WriteCmd,
		&ReadCmd,
		&ModeCmd,
		&DumpCmd,
		&AddrCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&heartbeat, "heartbeat", heartbeat, "Write a tick line at this interval, 0 disables.")
	flag.StringVar(&heartbeatChannel, "heartbeat-channel", heartbeatChannel, "Up channel receiving heartbeat ticks.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(cb *rtt.ControlBlock, chs *config.Channels) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		CB:       cb,
		Channels: chs,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// FormatInfo prints ChannelInfo into friendly string for display.
func FormatInfo(info rtt.ChannelInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%-4s %d", info.Direction, info.Index)
	if !info.Active {
		w.WriteString(" -")
		return w.String()
	}
	name := info.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&w, " %-12s %s %d/%d", name, info.Mode, info.Used, info.Size-1)
	return w.String()
}

// lookup resolves a channel reference, either a slot index or a name.
func (s *Shell) lookup(dir rtt.Direction, ref string) (rtt.ChannelInfo, error) {
	index, err := strconv.Atoi(ref)
	for _, info := range s.CB.Channels() {
		if info.Direction != dir || !info.Active {
			continue
		}
		if (err == nil && info.Index == index) || (err != nil && info.Name == ref) {
			return info, nil
		}
	}
	return rtt.ChannelInfo{}, fmt.Errorf("no active %s channel %q", dir, ref)
}

// upWriter is what the shell needs from UpChannel and SharedUpChannel.
type upWriter interface {
	Write([]byte) int
	SetMode(rtt.Mode) error
}

// unconfiguredTimeout bounds blocking writes on channels the layout has no
// handle for, so the shell never waits forever without a probe.
const unconfiguredTimeout = time.Second

// upHandle returns the handle the layout configured for an up channel, so
// its block timeout and gate apply. Channels without one, unnamed ones
// included, get a fresh handle.
func (s *Shell) upHandle(info rtt.ChannelInfo) upWriter {
	if s.Channels != nil && info.Name != "" {
		if ch, ok := s.Channels.Shared[info.Name]; ok {
			return ch
		}
		if ch, ok := s.Channels.Up[info.Name]; ok {
			return ch
		}
	}
	up, _ := s.CB.Up(info.Index)
	return up.WithBlockTimeout(unconfiguredTimeout)
}

// WriteUp writes text to an up channel and returns the bytes accepted.
func (s *Shell) WriteUp(ref, text string) (int, error) {
	info, err := s.lookup(rtt.Up, ref)
	if err != nil {
		return 0, err
	}
	return s.upHandle(info).Write([]byte(text)), nil
}

// ReadDown reads up to n bytes from a down channel without waiting.
func (s *Shell) ReadDown(ref string, n int) ([]byte, error) {
	info, err := s.lookup(rtt.Down, ref)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = info.Size
	}
	down, _ := s.CB.Down(info.Index)
	buf := make([]byte, n)
	return buf[:down.Read(buf)], nil
}

// SetMode changes the buffer-full mode of an up channel.
func (s *Shell) SetMode(ref, mode string) error {
	info, err := s.lookup(rtt.Up, ref)
	if err != nil {
		return err
	}
	m, err := rtt.ParseMode(mode)
	if err != nil {
		return err
	}
	return s.upHandle(info).SetMode(m)
}

// Heartbeat prepares a Heartbeat writing to the up channel name. The
// channel is switched to its shared handle first, so the shell and the
// heartbeat serialize on the same gate.
func (s *Shell) Heartbeat(interval time.Duration, name string) (*Heartbeat, error) {
	if s.Channels == nil {
		return nil, fmt.Errorf("heartbeat: no configured channels")
	}
	ch, ok := s.Channels.Share(name)
	if !ok {
		return nil, fmt.Errorf("heartbeat: no up channel %q", name)
	}
	return &Heartbeat{Interval: interval, Out: ch.Writer()}, nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Printf("control block at %#x\n", s.CB.Address())
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// InfoCmd lists the channel table.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"list", "l"},
		Help:    "list channels",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infos := s.CB.Channels()
			if s.OutputJSON {
				out, err := json.Marshal(infos)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			for _, info := range infos {
				c.Println(FormatInfo(info))
			}
		},
	}

	// WriteCmd writes text to an up channel.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "UP TEXT...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("usage: write UP TEXT..."))
				return
			}
			n, err := ShellFrom(c).WriteUp(c.Args[0], strings.Join(c.Args[1:], " ")+"\n")
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d bytes\n", n)
		},
	}

	// ReadCmd reads pending bytes from a down channel.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "DOWN [N]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: read DOWN [N]"))
				return
			}
			var n int
			if len(c.Args) > 1 {
				var err error
				if n, err = strconv.Atoi(c.Args[1]); err != nil {
					c.Err(fmt.Errorf("invalid count %q", c.Args[1]))
					return
				}
			}
			data, err := ShellFrom(c).ReadDown(c.Args[0], n)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%q\n", data)
		},
	}

	// ModeCmd changes the mode of an up channel.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "UP skip|trim|block|overwrite",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: mode UP MODE"))
				return
			}
			if err := ShellFrom(c).SetMode(c.Args[0], c.Args[1]); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// DumpCmd prints the control block the way a probe finds it.
	DumpCmd = ishell.Cmd{
		Name: "dump",
		Help: "hex dump of the control block",
		Func: func(c *ishell.Context) {
			c.Print(hex.Dump(ShellFrom(c).CB.Bytes()))
		},
	}

	// AddrCmd prints the control block address.
	AddrCmd = ishell.Cmd{
		Name: "addr",
		Help: "control block address",
		Func: func(c *ishell.Context) {
			cb := ShellFrom(c).CB
			c.Printf("%#x %d bytes\n", cb.Address(), len(cb.Bytes()))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalln(err)
	}
	cb, chs, err := config.Build(cfg)
	if err != nil {
		log.Fatalln(err)
	}

	s := New(cb, chs)
	ctx, cancel := context.WithCancel(context.Background())
	runner := fx.NewRunnerWith(ctx)
	if heartbeat > 0 {
		hb, err := s.Heartbeat(heartbeat, heartbeatChannel)
		if err != nil {
			log.Fatalln(err)
		}
		runner.Go(hb)
	}

	s.Run(flag.Args()...)
	cancel()
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
