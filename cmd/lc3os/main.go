// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/ezrec/lc3os/console"
	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/emulator"
	"github.com/ezrec/lc3os/kernel"
	"github.com/ezrec/lc3os/mmu"
)

var (
	compile string
	output  string
	logfile string
	verbose bool
	raw     bool
	big     bool
)

func main() {
	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&output, "o", "", "Assembled image output")
	flag.StringVar(&logfile, "l", "", "Log file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&raw, "raw", false, "Put the console terminal in raw mode")
	flag.BoolVar(&big, "be", false, "Images are big endian")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [options] CODE HEAP [CODE HEAP ...]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "       %v -c prog.asm -o prog.obj\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	os.Exit(run())
}

func byteOrder() binary.ByteOrder {
	if big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func setupLog() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if len(logfile) == 0 {
		return
	}

	f, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		log.Fatal(err)
	}
	log.SetOutput(f)
	log.SetPrefix("lc3os ")
}

// assemble compiles the -c source file into the -o image file.
func assemble() (code int) {
	if flag.NArg() != 0 || len(output) == 0 {
		flag.Usage()
		return 2
	}

	inf, err := os.Open(compile)
	if err != nil {
		log.Printf("%v: %v", compile, err)
		return 1
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: verbose}
	prog, err := asm.Parse(inf)
	if err != nil {
		log.Printf("%v: %v", compile, err)
		return 1
	}

	ouf, err := os.Create(output)
	if err != nil {
		log.Printf("%v: %v", output, err)
		return 1
	}
	defer ouf.Close()

	err = prog.Marshal(ouf, byteOrder())
	if err != nil {
		log.Printf("%v: %v", output, err)
		return 1
	}

	return 0
}

func run() (code int) {
	setupLog()

	if len(compile) != 0 {
		return assemble()
	}

	if flag.NArg() == 0 || flag.NArg()%2 != 0 {
		flag.Usage()
		return 2
	}

	var tty *console.Terminal
	if raw {
		var err error
		tty, err = console.RawMode(os.Stdin)
		if err != nil {
			log.Printf("stdin: %v", err)
		} else {
			defer tty.Restore()
		}
	}

	emu := emulator.NewEmulator(os.Stdin, os.Stdout)
	emu.Verbose = verbose
	emu.Kernel.ByteOrder = byteOrder()

	args := flag.Args()
	for n := 0; n < len(args); n += 2 {
		_, err := emu.CreateFromFiles(args[n], args[n+1])
		var imageErr *kernel.ErrImage
		if errors.As(err, &imageErr) {
			fmt.Fprintln(os.Stderr, imageErr)
			return 1
		}
		// Other failures are already reported on the console.
	}

	// A console read blocks the run loop, so an interrupt must not wait for it.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		if tty != nil {
			tty.Restore()
		}
		os.Exit(130)
	}()

	err := emu.Start()
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	err = emu.Run(context.Background())
	if err != nil {
		var fault *mmu.Fault
		if errors.As(err, &fault) {
			fmt.Println(fault)
		} else {
			log.Printf("%v", err)
		}
		return 1
	}

	return 0
}
