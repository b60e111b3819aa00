package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(0x100, 0x8ff)
	assert.Equal(uint16(0x8ff), cpu.SP)

	cpu.Push(0x12)
	assert.Equal(uint16(0x8fe), cpu.SP)
	assert.Equal(uint8(0x12), cpu.Memory[0x8ff])
	assert.Equal(PUSH_CYCLES, cpu.Ticks)
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(0x100, 0x8ff)
	cpu.Push(0x12)
	cpu.Push(0xAB)

	assert.Equal(uint8(0xAB), cpu.Pop())
	assert.Equal(uint8(0x12), cpu.Pop())
	assert.Equal(uint16(0x8ff), cpu.SP)
}

func TestStack_Word(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(0x100, 0x8ff)
	cpu.PushWord(0x1234)

	// Low byte goes in first, so it sits at the higher address.
	assert.Equal(uint8(0x34), cpu.Memory[0x8ff])
	assert.Equal(uint8(0x12), cpu.Memory[0x8fe])
	assert.Equal(uint16(0x1234), cpu.PopWord())
	assert.Equal(uint16(0x8ff), cpu.SP)
}

func TestStack_Peek(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(0x100, 0x8ff)
	_, ok := cpu.Peek()
	assert.False(ok)

	cpu.Push(0x55)
	val, ok := cpu.Peek()
	assert.True(ok)
	assert.Equal(uint8(0x55), val)
	assert.Equal(uint16(0x8fe), cpu.SP)
}

func TestStack_Region(t *testing.T) {
	assert := assert.New(t)

	s := Stack{Base: 0x100, Size: 0x40}
	assert.Equal(uint16(0x13f), s.Top())
	assert.True(s.Contains(0x100))
	assert.True(s.Contains(0x13f))
	assert.False(s.Contains(0x140))
	assert.False(s.Contains(0xff))
	assert.Equal(0, s.Used(s.Top()))
	assert.Equal(4, s.Used(s.Top()-4))
}

func TestStack_Underflow(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(0x100, 0x8ff)
	cpu.SP = 0xff

	assert.PanicsWithValue(ErrAddress(0xff), func() { cpu.Push(1) })
}
