// Spdr CLI - disassemble and run spdr bytecode programs
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/Barca545/spdr-isa/manifest"
	"github.com/Barca545/spdr-isa/pkg/program"
	"github.com/Barca545/spdr-isa/pkg/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	dis := flag.Bool("dis", false, "Disassemble instead of running")
	asCBOR := flag.Bool("cbor", false, "With -dis, emit the listing as canonical CBOR")
	out := flag.String("o", "", "Write output to a file instead of stdout")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	maxSteps := flag.Uint64("max-steps", 0, "Abort after this many instructions (0 = unlimited)")
	manifestDir := flag.String("manifest", "", "Load spdr.toml from this directory")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spdr [options] [file.spdr]\n\n")
		fmt.Fprintf(os.Stderr, "Runs or disassembles a spdr bytecode program.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spdr main.spdr                # Execute\n")
		fmt.Fprintf(os.Stderr, "  spdr -dis main.spdr           # Disassemble to stdout\n")
		fmt.Fprintf(os.Stderr, "  spdr -dis -cbor -o l.cbor f   # Export structured listing\n")
		fmt.Fprintf(os.Stderr, "  spdr -manifest .              # Run per ./spdr.toml\n")
	}
	flag.Parse()

	path := flag.Arg(0)

	// A manifest supplies defaults; explicit flags win.
	if *manifestDir != "" {
		m, err := manifest.Load(*manifestDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if path == "" {
			path = m.ProgramPath()
		}
		if !*trace {
			*trace = m.Engine.Trace
		}
		if *maxSteps == 0 {
			*maxSteps = m.Engine.MaxSteps
		}
	}

	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	verbosity := 0
	if *trace {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	p, err := program.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dis {
		if err := disassemble(p, *asCBOR, *out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	machine := vm.New(p)
	machine.Trace = *trace
	machine.MaxSteps = *maxSteps
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func disassemble(p *program.Program, asCBOR bool, out string) error {
	var data []byte
	if asCBOR {
		listing, err := p.List()
		if err != nil {
			return err
		}
		data, err = program.MarshalListing(listing)
		if err != nil {
			return err
		}
	} else {
		text, err := p.Disassemble()
		if err != nil {
			return err
		}
		data = []byte(text)
	}

	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
