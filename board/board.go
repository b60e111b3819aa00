// Package board describes the microcontroller boards the tasks run on:
// where SRAM lives, how much of it there is, and the default stack sizes.
package board

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"
	"strings"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"

	"github.com/ezrec/multitask/cpu"
)

//go:embed boards.yaml
var rawBoards []byte

var builtin Boards

// DEFAULT_BOARD is the board used when none is named.
const DEFAULT_BOARD = "nano"

// Size is a byte count, written in YAML either as a plain number or with a
// unit such as "2KB".
type Size uint16

// UnmarshalYAML accepts "2048", 2048 or "2KB".
func (size *Size) UnmarshalYAML(unmarshal func(any) error) (err error) {
	var count uint64
	if unmarshal(&count) != nil {
		var text string
		err = unmarshal(&text)
		if err != nil {
			return
		}

		var parsed bytesize.ByteSize
		parsed, err = bytesize.Parse(text)
		if err != nil {
			return
		}
		count = uint64(parsed)
	}

	if count > 0xffff {
		err = ErrSize
		return
	}

	*size = Size(count)
	return
}

// MarshalYAML writes the size in its shortest unit form.
func (size Size) MarshalYAML() (any, error) {
	return bytesize.New(float64(size)).String(), nil
}

func (size Size) String() string {
	return bytesize.New(float64(size)).String()
}

// Board is the profile of one board.
type Board struct {
	Name         string `yaml:"name"`
	Mcu          string `yaml:"mcu"`
	RamStart     uint16 `yaml:"ramstart"`
	Sram         Size   `yaml:"sram"`
	FCpu         uint32 `yaml:"f_cpu"`
	StackReserve Size   `yaml:"stack_reserve"`
	TaskStack    Size   `yaml:"task_stack"`
}

// Boards is a list of profiles.
type Boards []Board

// RamEnd is the last SRAM address.
func (b *Board) RamEnd() uint16 {
	return b.RamStart + uint16(b.Sram) - 1
}

// Validate checks that the memory layout of the board is usable.
func (b *Board) Validate() (err error) {
	defer func() {
		if err != nil {
			err = &ErrBoard{Name: b.Name, Err: err}
		}
	}()

	if b.Sram == 0 || int(b.RamStart)+int(b.Sram) > 0x10000 {
		err = ErrSramSize
		return
	}

	if b.StackReserve == 0 || b.StackReserve >= b.Sram {
		err = ErrStackReserve
		return
	}

	if int(b.TaskStack) > int(b.Sram)-int(b.StackReserve) {
		err = ErrTaskStack
		return
	}

	return
}

// NewCpu creates a core with the SRAM layout of the board.
func (b *Board) NewCpu() (core *cpu.Cpu) {
	core = cpu.NewCpu(b.RamStart, b.RamEnd())
	core.StackReserve = uint16(b.StackReserve)
	return
}

// Defines returns the board constants visible to sketches.
func (b *Board) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"F_CPU":         fmt.Sprintf("%d", b.FCpu),
		"SRAM_SIZE":     fmt.Sprintf("%d", b.Sram),
		"STACK_RESERVE": fmt.Sprintf("%d", b.StackReserve),
		"TASK_STACK":    fmt.Sprintf("%d", b.TaskStack),
	}
	if len(b.Mcu) != 0 {
		defines["__AVR_"+strings.ToUpper(b.Mcu)+"__"] = "1"
	}
	return maps.All(defines)
}

// Find returns the board with the given name.
func (boards Boards) Find(name string) (b Board, err error) {
	name = strings.ToLower(name)
	for _, b = range boards {
		if b.Name == name {
			return
		}
	}

	b = Board{}
	err = ErrBoardUnknown(name)
	return
}

// Load reads a YAML list of board profiles.
func Load(r io.Reader) (boards Boards, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	var doc struct {
		Boards Boards `yaml:"boards"`
	}
	err = yaml.UnmarshalStrict(data, &doc)
	if err != nil {
		return
	}

	for n := range doc.Boards {
		err = doc.Boards[n].Validate()
		if err != nil {
			return
		}
	}

	boards = doc.Boards
	return
}

// LoadFile reads board profiles from a YAML file.
func LoadFile(path string) (boards Boards, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	boards, err = Load(inf)
	return
}

// Builtin returns the profiles compiled in.
func Builtin() Boards {
	return builtin
}

// Lookup finds a built-in board by name.
func Lookup(name string) (b Board, err error) {
	b, err = builtin.Find(name)
	return
}

func init() {
	var err error
	builtin, err = Load(bytes.NewReader(rawBoards))
	if err != nil {
		panic(err)
	}
}
