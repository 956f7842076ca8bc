package ring

import (
	"bytes"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtt.go/pkg/rtt/layout"
)

func newTestRing(size int, mode layout.Mode) Ring {
	var desc layout.Channel
	buf := make([]byte, size)
	desc.Activate(0, uintptr(unsafe.Pointer(&buf[0])), size, mode)
	return New(&desc, buf)
}

func readAll(r Ring) []byte {
	out := make([]byte, r.Size())
	return out[:r.Read(out)]
}

func requireInvariant(t *testing.T, r Ring) {
	wr, rd := r.Desc().WriteOffset(), r.Desc().ReadOffset()
	require.True(t, wr >= 0 && wr < r.Size(), "write offset %d", wr)
	require.True(t, rd >= 0 && rd < r.Size(), "read offset %d", rd)
	require.True(t, r.Used() <= r.Size()-1, "used %d", r.Used())
	require.Equal(t, r.Usable(), r.Used()+r.Free())
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		size int
		data string
	}{
		{"one byte", 2, "x"},
		{"short", 16, "hello"},
		{"exact usable", 8, "ABCDEFG"},
		{"binary", 32, "\x00\xff\x01\xfe"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRing(tc.size, layout.ModeNoBlockSkip)
			require.Equal(t, len(tc.data), r.Write([]byte(tc.data)))
			require.Equal(t, len(tc.data), r.Used())
			require.Equal(t, tc.data, string(readAll(r)))
			require.Equal(t, 0, r.Used())
			requireInvariant(t, r)
		})
	}
}

func TestReadEmpty(t *testing.T) {
	r := newTestRing(8, layout.ModeNoBlockSkip)
	require.Equal(t, 0, r.Read(make([]byte, 4)))
	require.Equal(t, 0, r.Read(nil))
}

func TestPartialRead(t *testing.T) {
	r := newTestRing(8, layout.ModeNoBlockSkip)
	r.Write([]byte("abcdef"))
	p := make([]byte, 4)
	require.Equal(t, 4, r.Read(p))
	require.Equal(t, "abcd", string(p))
	require.Equal(t, 2, r.Read(p))
	require.Equal(t, "ef", string(p[:2]))
}

func TestWraparound(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	r := newTestRing(8, layout.ModeNoBlockTrim)
	var written, read bytes.Buffer
	next := byte(0)
	for i := 0; i < 2000; i++ {
		chunk := make([]byte, rnd.Intn(8)+1)
		for n := range chunk {
			chunk[n] = next
			next++
		}
		n := r.Write(chunk)
		written.Write(chunk[:n])
		next -= byte(len(chunk) - n)
		out := make([]byte, rnd.Intn(8)+1)
		read.Write(out[:r.Read(out)])
		requireInvariant(t, r)
	}
	read.Write(readAll(r))
	require.True(t, written.Len() > 8*100, "offsets must cross the boundary many times")
	require.Equal(t, written.Bytes(), read.Bytes())
}

func TestCapacityInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	modes := []layout.Mode{layout.ModeNoBlockSkip, layout.ModeNoBlockTrim, layout.ModeBlockIfFull, layout.ModeOverwrite}
	for _, size := range []int{2, 3, 8, 13} {
		r := newTestRing(size, layout.ModeNoBlockSkip)
		for i := 0; i < 1000; i++ {
			r.Desc().SetMode(modes[rnd.Intn(len(modes))])
			if rnd.Intn(2) == 0 {
				r.Write(make([]byte, rnd.Intn(2*size)))
			} else {
				r.Read(make([]byte, rnd.Intn(2*size)))
			}
			requireInvariant(t, r)
		}
	}
}

func TestSkipLeavesStateUnchanged(t *testing.T) {
	r := newTestRing(8, layout.ModeNoBlockSkip)
	require.Equal(t, 5, r.Write([]byte("12345")))
	wr, rd := r.Desc().WriteOffset(), r.Desc().ReadOffset()
	require.Equal(t, 0, r.Write([]byte("abc")))
	require.Equal(t, wr, r.Desc().WriteOffset())
	require.Equal(t, rd, r.Desc().ReadOffset())
	require.Equal(t, 2, r.Write([]byte("ab")))
	require.Equal(t, "12345ab", string(readAll(r)))
}

func TestTrim(t *testing.T) {
	r := newTestRing(8, layout.ModeNoBlockTrim)
	require.Equal(t, 5, r.Write([]byte("12345")))
	require.Equal(t, 2, r.Write([]byte("abc")))
	require.Equal(t, 0, r.Write([]byte("z")))
	require.Equal(t, "12345ab", string(readAll(r)))
}

func TestBlockModeSinglePass(t *testing.T) {
	r := newTestRing(4, layout.ModeBlockIfFull)
	require.Equal(t, 3, r.Write([]byte("abcdef")))
	require.Equal(t, "abc", string(readAll(r)))
}

func TestOverwrite(t *testing.T) {
	t.Run("no eviction when it fits", func(t *testing.T) {
		r := newTestRing(8, layout.ModeOverwrite)
		require.Equal(t, 3, r.Write([]byte("abc")))
		require.Equal(t, 0, r.Desc().ReadOffset())
		require.Equal(t, "abc", string(readAll(r)))
	})
	t.Run("evicts oldest", func(t *testing.T) {
		r := newTestRing(8, layout.ModeOverwrite)
		r.Write([]byte("ABCDE"))
		require.Equal(t, 4, r.Write([]byte("wxyz")))
		require.Equal(t, r.Usable(), r.Used())
		require.Equal(t, "CDEwxyz", string(readAll(r)))
	})
	t.Run("full capacity payload", func(t *testing.T) {
		r := newTestRing(8, layout.ModeOverwrite)
		r.Write([]byte("abc"))
		require.Equal(t, 7, r.Write([]byte("1234567")))
		require.Equal(t, "1234567", string(readAll(r)))
	})
	t.Run("oversized payload keeps tail", func(t *testing.T) {
		r := newTestRing(8, layout.ModeOverwrite)
		r.Write([]byte("abc"))
		require.Equal(t, 10, r.Write([]byte("0123456789")))
		require.Equal(t, "3456789", string(readAll(r)))
		requireInvariant(t, r)
	})
}

func TestScenarioDiscardNew(t *testing.T) {
	r := newTestRing(8, layout.ModeNoBlockSkip)
	require.Equal(t, 7, r.Write([]byte("ABCDEFG")))
	wr := r.Desc().WriteOffset()
	require.Equal(t, 0, r.Write([]byte("H")))
	require.Equal(t, wr, r.Desc().WriteOffset())
	p := make([]byte, 7)
	require.Equal(t, 7, r.Read(p))
	require.Equal(t, "ABCDEFG", string(p))
	require.Equal(t, 0, r.Used())
	require.Equal(t, 2, r.Write([]byte("XY")))
	p = make([]byte, 2)
	require.Equal(t, 2, r.Read(p))
	require.Equal(t, "XY", string(p))
}

func TestScenarioDiscardOld(t *testing.T) {
	r := newTestRing(8, layout.ModeOverwrite)
	require.Equal(t, 7, r.Write([]byte("ABCDEFG")))
	require.Equal(t, 4, r.Write([]byte("1234")))
	require.Equal(t, "EFG1234", string(readAll(r)))
}

func TestCorruptedPeerOffsets(t *testing.T) {
	t.Run("read offset out of range", func(t *testing.T) {
		r := newTestRing(8, layout.ModeNoBlockSkip)
		r.Desc().SetReadOffset(100)
		require.Equal(t, 0, r.Write([]byte("a")))
		require.Equal(t, 0, r.WriteTrim([]byte("a")))
		require.Equal(t, 0, r.Free())
		require.Equal(t, 2, r.WriteOverwrite([]byte("ab")))
		requireInvariant(t, r)
		require.Equal(t, "ab", string(readAll(r)))
	})
	t.Run("write offset out of range", func(t *testing.T) {
		r := newTestRing(8, layout.ModeNoBlockSkip)
		r.Desc().SetWriteOffset(9)
		require.Equal(t, 0, r.Read(make([]byte, 8)))
		require.Equal(t, 0, r.Used())
	})
}

func TestZeroRing(t *testing.T) {
	var r Ring
	require.Equal(t, 0, r.Write([]byte("abc")))
	require.Equal(t, 0, r.WriteOverwrite([]byte("abc")))
	require.Equal(t, 0, r.Read(make([]byte, 3)))
	require.Equal(t, 0, r.Used())
	require.Equal(t, 0, r.Free())
	require.Equal(t, 0, r.Usable())
	require.Equal(t, layout.ModeNoBlockSkip, r.Mode())
}
