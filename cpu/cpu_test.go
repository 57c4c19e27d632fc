package cpu

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rom builds a ROM image from instruction words.
func rom(words ...uint16) (data []byte) {
	for _, word := range words {
		data = append(data, uint8(word>>8), uint8(word))
	}
	return
}

// newLoaded returns a CPU with the default quirks and the words loaded at
// ROM_BASE.
func newLoaded(t *testing.T, words ...uint16) *Cpu {
	cpu := NewCpu(DefaultQuirks())
	cpu.Random = rand.New(rand.NewPCG(1, 2))
	require.NoError(t, cpu.Load(rom(words...)))
	return cpu
}

func TestCpu_Load(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultQuirks())
	err := cpu.Load([]byte{0x12, 0x34, 0x56})
	assert.NoError(err)

	assert.Equal(Font[:], cpu.Memory[FONT_BASE:FONT_BASE+len(Font)])
	assert.Equal([]byte{0x12, 0x34, 0x56}, cpu.Memory[ROM_BASE:ROM_BASE+3])
	assert.Equal(uint16(ROM_BASE), cpu.Pc)
	assert.Equal(uint8(0), cpu.Stack.Sp)

	err = cpu.Load(make([]byte, MAX_ROM_SIZE))
	assert.NoError(err)

	cpu.V[3] = 7
	err = cpu.Load(make([]byte, MAX_ROM_SIZE+1))
	assert.ErrorIs(err, ErrRomTooLarge)
	assert.Equal(uint8(7), cpu.V[3])
}

func TestCpu_Fetch(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xa2f0)
	code, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(Code(0xa2f0), code)
	assert.Equal(uint16(ROM_BASE), cpu.Pc)

	cpu.Pc = MEMORY_SIZE - 2
	_, err = cpu.Fetch()
	assert.NoError(err)

	cpu.Pc = MEMORY_SIZE - 1
	_, err = cpu.Fetch()
	assert.ErrorIs(err, ErrAddressFault)

	var addr ErrAddress
	assert.True(errors.As(err, &addr))
	assert.Equal(ErrAddress(MEMORY_SIZE), addr)

	cpu.Pc = MEMORY_SIZE
	assert.ErrorIs(cpu.Tick(), ErrAddressFault)
	assert.Equal(uint16(MEMORY_SIZE), cpu.Pc)
}

func TestCpu_LdVxKk(t *testing.T) {
	assert := assert.New(t)

	for x := range uint16(16) {
		for _, kk := range []uint16{0x00, 0x01, 0x7f, 0x80, 0xff} {
			cpu := newLoaded(t, 0x6000|x<<8|kk)
			for n := range cpu.V {
				cpu.V[n] = uint8(0xa0 + n)
			}
			before := *cpu

			assert.NoError(cpu.Tick())

			assert.Equal(uint8(kk), cpu.V[x])
			for n := range cpu.V {
				if n != int(x) {
					assert.Equal(before.V[n], cpu.V[n])
				}
			}
			assert.Equal(before.Memory, cpu.Memory)
			assert.Equal(before.I, cpu.I)
			assert.Equal(uint16(ROM_BASE+2), cpu.Pc)
		}
	}
}

func TestCpu_AddVxKk(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x7001)
	cpu.V[0] = 0xff
	cpu.V[0xf] = 0x5

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(0x00), cpu.V[0])
	assert.Equal(uint8(0x5), cpu.V[0xf])
}

func TestCpu_AddVxVy(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x8124)
	for a := range 256 {
		for b := range 256 {
			cpu.Pc = ROM_BASE
			cpu.V[1] = uint8(a)
			cpu.V[2] = uint8(b)
			assert.NoError(cpu.Tick())

			carry := uint8(0)
			if a+b > 255 {
				carry = 1
			}
			if cpu.V[1] != uint8((a+b)%256) || cpu.V[0xf] != carry {
				t.Fatalf("add %d %d => %d flag %d", a, b, cpu.V[1], cpu.V[0xf])
			}
		}
	}
}

func TestCpu_Sub(t *testing.T) {
	cpu := newLoaded(t, 0x8125)
	for a := range 256 {
		for b := range 256 {
			cpu.Pc = ROM_BASE
			cpu.V[1] = uint8(a)
			cpu.V[2] = uint8(b)
			if err := cpu.Tick(); err != nil {
				t.Fatal(err)
			}

			flag := uint8(0)
			if a >= b {
				flag = 1
			}
			if cpu.V[1] != uint8((a-b+256)%256) || cpu.V[0xf] != flag {
				t.Fatalf("sub %d %d => %d flag %d", a, b, cpu.V[1], cpu.V[0xf])
			}
		}
	}
}

func TestCpu_Subn(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		a, b   uint8
		result uint8
		flag   uint8
	}{
		{10, 30, 20, 1},
		{30, 10, 236, 0},
		{5, 5, 0, 1},
		{0, 255, 255, 1},
		{1, 0, 255, 0},
	}

	for _, entry := range table {
		cpu := newLoaded(t, 0x8127)
		cpu.V[1] = entry.a
		cpu.V[2] = entry.b
		assert.NoError(cpu.Tick())
		assert.Equal(entry.result, cpu.V[1], "%d - %d", entry.b, entry.a)
		assert.Equal(entry.flag, cpu.V[0xf], "%d - %d", entry.b, entry.a)
	}
}

func TestCpu_FlagRegisterAsOperand(t *testing.T) {
	assert := assert.New(t)

	// The flag wins when VF is the destination.
	cpu := newLoaded(t, 0x8f14)
	cpu.V[0xf] = 0xff
	cpu.V[1] = 0x02
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(1), cpu.V[0xf])

	cpu = newLoaded(t, 0x8f15)
	cpu.V[0xf] = 0x01
	cpu.V[1] = 0x02
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(0), cpu.V[0xf])
}

func TestCpu_Logic(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		code   uint16
		result uint8
	}{
		{0x8120, 0x3c},
		{0x8121, 0xfc},
		{0x8122, 0x30},
		{0x8123, 0xcc},
	}

	for _, reset := range []bool{true, false} {
		for _, entry := range table {
			cpu := newLoaded(t, entry.code)
			cpu.Quirks.LogicResetsVF = reset
			cpu.V[1] = 0xf0
			cpu.V[2] = 0x3c
			cpu.V[0xf] = 0x77
			assert.NoError(cpu.Tick())
			assert.Equal(entry.result, cpu.V[1], "%04x", entry.code)

			flag := uint8(0x77)
			if reset && entry.code != 0x8120 {
				flag = 0
			}
			assert.Equal(flag, cpu.V[0xf], "%04x reset:%v", entry.code, reset)
		}
	}
}

func TestCpu_Shift(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		code   uint16
		usesVY bool
		result uint8
		flag   uint8
		vy     uint8
	}{
		{0x8126, true, 0x40, 1, 0x81},
		{0x8126, false, 0x00, 1, 0x81},
		{0x812e, true, 0x02, 1, 0x81},
		{0x812e, false, 0x02, 0, 0x81},
	}

	for _, entry := range table {
		cpu := newLoaded(t, entry.code)
		cpu.Quirks.ShiftUsesVY = entry.usesVY
		cpu.V[1] = 0x01
		cpu.V[2] = entry.vy
		assert.NoError(cpu.Tick())
		assert.Equal(entry.result, cpu.V[1], "%04x vy:%v", entry.code, entry.usesVY)
		assert.Equal(entry.flag, cpu.V[0xf], "%04x vy:%v", entry.code, entry.usesVY)
		assert.Equal(entry.vy, cpu.V[2])
	}
}

func TestCpu_Skips(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		code uint16
		skip bool
	}{
		{0x3122, true},
		{0x3123, false},
		{0x4122, false},
		{0x4123, true},
		{0x5120, false},
		{0x5130, true},
		{0x9120, true},
		{0x9130, false},
	}

	for _, entry := range table {
		cpu := newLoaded(t, entry.code)
		cpu.V[1] = 0x22
		cpu.V[2] = 0x23
		cpu.V[3] = 0x22
		assert.NoError(cpu.Tick())
		want := uint16(ROM_BASE + 2)
		if entry.skip {
			want += 2
		}
		assert.Equal(want, cpu.Pc, "%04x", entry.code)
	}
}

func TestCpu_Keys(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xe39e)
	cpu.V[3] = 0xb
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+2), cpu.Pc)

	cpu = newLoaded(t, 0xe39e)
	cpu.V[3] = 0xb
	cpu.Keypad.Press(0xb)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+4), cpu.Pc)

	cpu = newLoaded(t, 0xe3a1)
	cpu.V[3] = 0xb
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+4), cpu.Pc)

	cpu = newLoaded(t, 0xe3a1)
	cpu.V[3] = 0xb
	cpu.Keypad.Press(0xb)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+2), cpu.Pc)

	// Only the low nibble selects the key.
	cpu = newLoaded(t, 0xe39e)
	cpu.V[3] = 0x1b
	cpu.Keypad.Press(0xb)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+4), cpu.Pc)
}

func TestCpu_JumpsAndIndex(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x1345)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x345), cpu.Pc)

	cpu = newLoaded(t, 0xa456)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x456), cpu.I)

	cpu = newLoaded(t, 0xb300)
	cpu.V[0] = 0x10
	cpu.V[3] = 0x20
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x310), cpu.Pc)

	cpu = newLoaded(t, 0xb300)
	cpu.Quirks.JumpUsesVX = true
	cpu.V[0] = 0x10
	cpu.V[3] = 0x20
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x320), cpu.Pc)

	cpu = newLoaded(t, 0xbfff)
	cpu.V[0] = 0x01
	err := cpu.Tick()
	assert.ErrorIs(err, ErrAddressFault)
	assert.ErrorIs(err, ErrOpcode(0))
	assert.Equal(uint16(ROM_BASE), cpu.Pc)
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x2300)
	cpu.Memory[0x300] = 0x00
	cpu.Memory[0x301] = 0xee

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x300), cpu.Pc)
	assert.Equal(uint8(1), cpu.Stack.Sp)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+2), cpu.Pc)
	assert.Equal(uint8(0), cpu.Stack.Sp)
}

func TestCpu_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	// Recursive call to self.
	cpu := newLoaded(t, 0x2200)
	for range STACK_LIMIT - 1 {
		assert.NoError(cpu.Tick())
	}
	assert.Equal(uint8(STACK_LIMIT-1), cpu.Stack.Sp)

	before := *cpu
	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.ErrorIs(err, ErrOpcode(0x2200))
	assert.Equal(before, *cpu)
}

func TestCpu_StackUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x00ee)
	before := *cpu
	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.Equal(before, *cpu)
}

func TestCpu_Draw(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xa300, 0xd011, 0xd011)
	cpu.Memory[0x300] = 0xff
	cpu.V[0] = 60
	cpu.V[1] = 0

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.True(cpu.Display.Dirty)
	assert.Equal(uint8(0), cpu.V[0xf])
	for x := range 64 {
		lit := x >= 60 || x < 4
		assert.Equal(lit, cpu.Display.Pixels[0][x] == 1, "column %d", x)
	}
	assert.Equal(uint16(0x300), cpu.I)

	cpu.Display.Redrawn()
	assert.NoError(cpu.Tick())
	assert.True(cpu.Display.Dirty)
	assert.Equal(uint8(1), cpu.V[0xf])
	assert.Equal(0, cpu.Display.Lit())
}

func TestCpu_DrawFont(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xf129, 0xd235)
	cpu.V[1] = 0x8
	cpu.V[2] = 0
	cpu.V[3] = 0

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x8*FONT_GLYPH), cpu.I)
	assert.NoError(cpu.Tick())
	// Glyph 8 is 0xF0, 0x90, 0xF0, 0x90, 0xF0
	assert.Equal(4+2+4+2+4, cpu.Display.Lit())
}

func TestCpu_DrawFault(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xd015)
	cpu.I = MEMORY_SIZE - 2
	cpu.V[0xf] = 0x42
	before := *cpu

	err := cpu.Tick()
	assert.ErrorIs(err, ErrAddressFault)
	assert.Equal(before, *cpu)
}

func TestCpu_ClearScreen(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x00e0, 0x00e0)
	cpu.Display.Draw(1, 1, []byte{0xff, 0xff})

	assert.NoError(cpu.Tick())
	once := cpu.Display
	cpu.Display.Redrawn()
	assert.NoError(cpu.Tick())
	assert.Equal(once, cpu.Display)
	assert.Equal(0, cpu.Display.Lit())
	assert.True(cpu.Display.Dirty)
}

func TestCpu_Bcd(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xf533)
	cpu.V[5] = 157
	cpu.I = 0x400

	assert.NoError(cpu.Tick())
	assert.Equal([]uint8{1, 5, 7}, cpu.Memory[0x400:0x403])
	assert.Equal(uint16(0x400), cpu.I)

	cpu = newLoaded(t, 0xf533)
	cpu.I = MEMORY_SIZE - 2
	before := *cpu
	assert.ErrorIs(cpu.Tick(), ErrAddressFault)
	assert.Equal(before, *cpu)
}

func TestCpu_LoadStore(t *testing.T) {
	assert := assert.New(t)

	for _, increments := range []bool{true, false} {
		cpu := newLoaded(t, 0xf355, 0xf365)
		cpu.Quirks.LoadStoreIncrementsI = increments
		cpu.I = 0x500
		cpu.V = [16]uint8{1, 2, 3, 4, 5, 6}

		assert.NoError(cpu.Tick())
		assert.Equal([]uint8{1, 2, 3, 4, 0}, cpu.Memory[0x500:0x505])

		want := uint16(0x500)
		if increments {
			want += 4
		}
		assert.Equal(want, cpu.I)

		cpu.I = 0x500
		cpu.V = [16]uint8{}
		assert.NoError(cpu.Tick())
		assert.Equal([16]uint8{1, 2, 3, 4}, cpu.V)
		assert.Equal(want, cpu.I)
	}

	cpu := newLoaded(t, 0xff55)
	cpu.I = MEMORY_SIZE - 15
	before := *cpu
	assert.ErrorIs(cpu.Tick(), ErrAddressFault)
	assert.Equal(before, *cpu)

	cpu = newLoaded(t, 0xfe65)
	cpu.I = MEMORY_SIZE - 15
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(MEMORY_SIZE), cpu.I)
}

func TestCpu_AddI(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xf31e)
	cpu.I = 0x300
	cpu.V[3] = 0x20
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x320), cpu.I)
	assert.Equal(uint8(0), cpu.V[0xf])

	cpu = newLoaded(t, 0xf31e)
	cpu.I = 0xff0
	cpu.V[3] = 0x10
	before := *cpu
	assert.ErrorIs(cpu.Tick(), ErrAddressFault)
	assert.Equal(before, *cpu)
}

func TestCpu_Timers(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xf115, 0xf218, 0xf307)
	cpu.V[1] = 2
	cpu.V[2] = 1

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(2), cpu.Delay)
	assert.Equal(uint8(1), cpu.Sound)
	assert.True(cpu.Sounding())

	cpu.TickTimers()
	assert.Equal(uint8(1), cpu.Delay)
	assert.Equal(uint8(0), cpu.Sound)
	assert.False(cpu.Sounding())

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(1), cpu.V[3])

	cpu.TickTimers()
	cpu.TickTimers()
	assert.Equal(uint8(0), cpu.Delay)
	assert.Equal(uint8(0), cpu.Sound)
}

func TestCpu_Random(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xc10f, 0xc2f0)
	cpu.Random = rand.New(rand.NewPCG(7, 11))
	expect := rand.New(rand.NewPCG(7, 11))

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(expect.Uint32())&0x0f, cpu.V[1])
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(expect.Uint32())&0xf0, cpu.V[2])

	cpu = newLoaded(t, 0xc100)
	cpu.Random = nil
	cpu.V[1] = 0xff
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(0), cpu.V[1])
}

func TestCpu_KeyWait(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0xf40a, 0x6101)
	assert.False(cpu.Waiting())

	for range 5 {
		assert.NoError(cpu.Tick())
		assert.Equal(uint16(ROM_BASE), cpu.Pc)
		assert.True(cpu.Waiting())
		assert.Equal(KEY_WAIT_SCANNING, cpu.KeyWait.State)
	}

	cpu.Keypad.Press(5)
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(5), cpu.V[4])
	assert.Equal(uint16(ROM_BASE), cpu.Pc)
	assert.Equal(KeyWait{State: KEY_WAIT_CAPTURED, Key: 5}, cpu.KeyWait)

	// Still held.
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE), cpu.Pc)

	cpu.Keypad.Release(5)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(ROM_BASE+2), cpu.Pc)
	assert.False(cpu.Waiting())

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(1), cpu.V[1])
}

func TestCpu_UnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	words := []uint16{0x0123, 0x5121, 0x8128, 0xe1ff, 0xf1ff}
	cpu := newLoaded(t, words...)
	cpu.V[1] = 0x11
	before := *cpu

	for n := range words {
		assert.NoError(cpu.Tick())
		assert.Equal(uint16(ROM_BASE+2*(n+1)), cpu.Pc)
	}
	assert.Equal(len(words), cpu.Unknown)
	assert.Equal(before.V, cpu.V)
	assert.Equal(before.Memory, cpu.Memory)
	assert.Equal(before.Display, cpu.Display)
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x2300)
	assert.NoError(cpu.Tick())
	cpu.V[0xa] = 0x5c

	text := cpu.String()
	assert.Contains(text, "   pc: 300\n")
	assert.Contains(text, "   vA: 5C\n")
	assert.Contains(text, "stack: 202 (1)\n")
	assert.Contains(text, "  key: idle\n")
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 0x2300)
	assert.NoError(cpu.Tick())
	cpu.Keypad.Press(3)
	cpu.Display.Draw(0, 0, []byte{0xff})

	cpu.Reset()
	assert.Equal(uint16(ROM_BASE), cpu.Pc)
	assert.True(cpu.Stack.Empty())
	assert.Equal(0, cpu.Display.Lit())
	assert.False(cpu.Keypad.Pressed(3))
	assert.Equal(0, cpu.Ticks)
	assert.Equal(uint8(0), cpu.Memory[ROM_BASE])
	assert.Equal(Font[0], cpu.Memory[FONT_BASE])
}

func TestCpu_AddressFaultLocation(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		code  uint16
		index uint16
		v0    uint8
	}{
		{0xf755, 0xffc, 0},
		{0xf765, 0xffc, 0},
		{0xd015, 0xffe, 0},
		{0xf033, 0xfff, 0},
		{0xbfff, 0, 1},
		{0xf01e, 0xfff, 1},
	}

	for _, entry := range table {
		cpu := newLoaded(t, entry.code)
		cpu.I = entry.index
		cpu.V[0] = entry.v0

		err := cpu.Tick()
		var addr ErrAddress
		if assert.True(errors.As(err, &addr), "%04x", entry.code) {
			assert.Equal(ErrAddress(MEMORY_SIZE), addr, "%04x", entry.code)
		}
	}
}
