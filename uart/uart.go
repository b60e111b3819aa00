// Package uart models USART0: transmit straight to an io.Writer, receive
// from an io.Reader through the RX complete interrupt into a ring buffer.
package uart

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/multitask/cpu"
)

// DEFAULT_CAPACITY is the RX ring size, as in the Arduino core.
const DEFAULT_CAPACITY = 64

// Port is a serial port. Input is pumped by its own goroutine, one byte at
// a time, into a single byte latch; the RX interrupt handler moves latched
// bytes into the ring, where the sketch reads them.
type Port struct {
	Verbose  bool      // If set, logs overruns.
	Input    io.Reader // Received bytes, may be nil.
	Output   io.Writer // Transmitted bytes, may be nil.
	Capacity int       // RX ring size in bytes.

	Overruns int // Bytes dropped because the ring was full.

	cpu   *cpu.Cpu
	latch chan byte
	done  chan struct{}

	readIndex  int
	writeIndex int
	size       int
	data       []byte
}

var _ io.Writer = (*Port)(nil)
var _ io.ByteReader = (*Port)(nil)

// Defines returns the sketch defines of the port.
func (port *Port) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"SERIAL_RX_BUFFER_SIZE": fmt.Sprintf("%d", port.capacity()),
	})
}

func (port *Port) capacity() int {
	if port.Capacity <= 0 {
		return DEFAULT_CAPACITY
	}
	return port.Capacity
}

// Rewind empties the RX ring.
func (port *Port) Rewind() {
	port.readIndex = 0
	port.writeIndex = 0
	port.size = 0
	port.data = make([]byte, port.capacity())
}

// Attach connects the port to the RX interrupt of a core, and starts
// pumping Input.
func (port *Port) Attach(core *cpu.Cpu) (err error) {
	if port.cpu != nil {
		err = ErrAttached
		return
	}

	err = core.Attach(cpu.VECTOR_USART_RX, port.isr)
	if err != nil {
		return
	}

	port.cpu = core
	port.Rewind()
	port.latch = make(chan byte, 1)
	port.done = make(chan struct{})

	if port.Input != nil {
		go port.pump(core, port.Input, port.latch, port.done)
	}

	return
}

// Close detaches the port. A pump blocked reading Input exits once the
// read returns.
func (port *Port) Close() (err error) {
	if port.cpu == nil {
		return
	}

	close(port.done)
	err = port.cpu.Attach(cpu.VECTOR_USART_RX, nil)
	port.cpu = nil

	return
}

// pump feeds the latch from input, raising the RX interrupt per byte.
func (port *Port) pump(core *cpu.Cpu, input io.Reader, latch chan<- byte, done <-chan struct{}) {
	var one [1]byte
	for {
		_, err := io.ReadFull(input, one[:])
		if err != nil {
			if port.Verbose && err != io.EOF {
				log.Printf("uart: rx: %v", err)
			}
			return
		}

		select {
		case latch <- one[0]:
			core.Raise(cpu.VECTOR_USART_RX)
		case <-done:
			return
		}
	}
}

// isr moves latched bytes into the ring.
func (port *Port) isr() {
	for {
		select {
		case value := <-port.latch:
			port.push(value)
		default:
			return
		}
	}
}

func (port *Port) push(value byte) {
	if port.size >= len(port.data) {
		port.Overruns++
		if port.Verbose {
			log.Printf("uart: rx overrun, dropped 0x%02x", value)
		}
		return
	}

	port.data[port.writeIndex] = value
	port.writeIndex++
	if port.writeIndex == len(port.data) {
		port.writeIndex = 0
	}
	port.size++
}

// Available is the number of bytes waiting in the ring.
func (port *Port) Available() int {
	return port.size
}

// ReadByte takes the oldest byte from the ring, or io.EOF if it is empty.
func (port *Port) ReadByte() (value byte, err error) {
	if port.size == 0 {
		err = io.EOF
		return
	}

	value = port.data[port.readIndex]
	port.readIndex++
	if port.readIndex == len(port.data) {
		port.readIndex = 0
	}
	port.size--

	return
}

// Peek returns the oldest byte without taking it.
func (port *Port) Peek() (value byte, ok bool) {
	if port.size == 0 {
		return
	}

	value = port.data[port.readIndex]
	ok = true
	return
}

// Receive iterates over the ring until it is empty.
func (port *Port) Receive() iter.Seq[byte] {
	return func(yield func(value byte) bool) {
		for {
			value, err := port.ReadByte()
			if err != nil {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// Write transmits p.
func (port *Port) Write(p []byte) (n int, err error) {
	if port.Output == nil {
		err = ErrNoOutput
		return
	}

	n, err = port.Output.Write(p)
	return
}
