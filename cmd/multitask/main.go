// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"
	"go.bug.st/serial"

	"github.com/ezrec/multitask/board"
	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/emulator"
	"github.com/ezrec/multitask/trace"
)

// ENV_FLAGS holds extra command line flags, split as by a shell.
const ENV_FLAGS = "MULTITASK_FLAGS"

// arguments returns the flags from the environment, then the command line.
func arguments() (args []string, err error) {
	args, err = shlex.Split(os.Getenv(ENV_FLAGS))
	if err != nil {
		return
	}

	args = append(args, os.Args[1:]...)
	return
}

func main() {
	var boardName string
	var boardFile string
	var sketch string
	var loops int
	var input string
	var output string
	var port string
	var baud int
	var verbose bool
	var paranoid bool
	var showTrace bool
	var hexFile string
	var stack string
	var step uint
	var wall bool

	log.SetOutput(colorable.NewColorableStderr())

	flag.StringVar(&boardName, "b", board.DEFAULT_BOARD, "Board name")
	flag.StringVar(&boardFile, "boards", "", ".yaml file of board profiles")
	flag.StringVar(&sketch, "s", "", ".star sketch to run")
	flag.IntVar(&loops, "n", 0, "Maximum loop() passes, 0 for no limit")
	flag.StringVar(&input, "i", "-", "Serial input, empty for none")
	flag.StringVar(&output, "o", "-", "Serial output, empty for none")
	flag.StringVar(&port, "p", "", "Host serial port to use for serial I/O")
	flag.IntVar(&baud, "baud", 115200, "Host serial port baud rate")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&paranoid, "paranoid", false, "Checksum parked stack frames")
	flag.BoolVar(&showTrace, "trace", false, "Report context residency at exit")
	flag.StringVar(&hexFile, "hex", "", "Intel HEX file to dump SRAM to at exit")
	flag.StringVar(&stack, "stack", "", "Default task stack size, as 128 or 1KB")
	flag.UintVar(&step, "step", 0, "Microseconds per clock reading, 0 for the board default")
	flag.BoolVar(&wall, "wall", false, "Use the host clock")

	args, err := arguments()
	if err != nil {
		log.Fatalf("%v: %v", ENV_FLAGS, err)
	}

	err = flag.CommandLine.Parse(args)
	if err != nil {
		log.Fatal(err)
	}

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(sketch) == 0 {
		log.Fatalf("%v: no sketch given (-s)", os.Args[0])
	}

	boards := board.Builtin()
	if len(boardFile) != 0 {
		boards, err = board.LoadFile(boardFile)
		if err != nil {
			log.Fatalf("%v: %v", boardFile, err)
		}
	}

	profile, err := boards.Find(boardName)
	if err != nil {
		log.Fatal(err)
	}

	if len(stack) != 0 {
		size, err := bytesize.Parse(stack)
		if err != nil || size > 0xffff {
			log.Fatalf("-stack %v: invalid size", stack)
		}
		profile.TaskStack = board.Size(size)
	}

	emu := emulator.NewEmulator(profile)
	emu.Verbose = verbose
	emu.Paranoid = paranoid
	defer emu.Close()

	switch {
	case wall:
		emu.Clock = clock.NewWall(0)
	case step != 0:
		emu.Clock = &clock.Counter{Step: uint32(step)}
	}

	if showTrace {
		emu.Trace = trace.NewRecorder()
	}

	if len(port) != 0 {
		sp, err := serial.Open(port, &serial.Mode{BaudRate: baud})
		if err != nil {
			log.Fatalf("%v: %v", port, err)
		}
		defer sp.Close()
		emu.Serial.Input = sp
		emu.Serial.Output = sp
	} else {
		emu.Serial.Input = openInput(input)
		emu.Serial.Output = openOutput(output)
	}

	inf, err := os.Open(sketch)
	if err != nil {
		log.Fatalf("%v: %v", sketch, err)
	}
	defer inf.Close()

	err = emu.Load(sketch, inf)
	if err != nil {
		log.Fatalf("%v: %v", sketch, err)
	}

	for done, err := emu.Tick(); !done; done, err = emu.Tick() {
		if err != nil {
			log.Fatalf("%v: %v", sketch, err)
		}
		if loops != 0 && emu.Loops() >= loops {
			break
		}
	}

	if showTrace {
		err = emu.Trace.Report(os.Stderr)
		if err != nil {
			log.Fatal(err)
		}
	}

	if len(hexFile) != 0 {
		ouf, err := os.Create(hexFile)
		if err != nil {
			log.Fatalf("%v: %v", hexFile, err)
		}
		defer ouf.Close()

		err = emu.Dump(ouf)
		if err != nil {
			log.Fatalf("%v: %v", hexFile, err)
		}
	}
}

// openInput opens the serial input; "-" is stdin.
func openInput(name string) io.Reader {
	switch name {
	case "":
		return nil
	case "-":
		return os.Stdin
	}

	inf, err := os.Open(name)
	if err != nil {
		log.Fatalf("%v: %v", name, err)
	}
	return inf
}

// openOutput creates the serial output; "-" is stdout.
func openOutput(name string) io.Writer {
	switch name {
	case "":
		return nil
	case "-":
		return os.Stdout
	}

	ouf, err := os.Create(name)
	if err != nil {
		log.Fatalf("%v: %v", name, err)
	}
	return ouf
}
