// mil CLI - compiles mil scripts to covenant bytecode
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/mil/compiler"
	"github.com/chazu/mil/manifest"
	"github.com/chazu/mil/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Version is the compiler version embedded into artifacts.
const Version = "0.1.0"

var log = commonlog.GetLogger("mil")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	output := flag.String("o", "", "Output path for compiled bytecode")
	disasm := flag.Bool("disasm", false, "Print the disassembly of the compiled bytecode")
	run := flag.Bool("run", false, "Execute the compiled bytecode and print the result")
	store := flag.Bool("store", false, "Save the compiled artifact to the project store")
	list := flag.Bool("list", false, "List artifacts in the project store")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mil [options] [script.mil]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a mil script to covenant bytecode. With no script argument,\n")
		fmt.Fprintf(os.Stderr, "the entry point from the nearest mil.toml is compiled.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mil script.mil                # compile, print bytecode as hex\n")
		fmt.Fprintf(os.Stderr, "  mil -o script.mvm script.mil  # compile to a file\n")
		fmt.Fprintf(os.Stderr, "  mil -run script.mil           # compile and execute\n")
		fmt.Fprintf(os.Stderr, "  mil -disasm script.mil        # compile and disassemble\n")
		fmt.Fprintf(os.Stderr, "  mil -store                    # compile project entry, save artifact\n")
		fmt.Fprintf(os.Stderr, "  mil -list                     # list stored artifacts\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	// Locate the project manifest, if any.
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fatalf("%v", err)
	}

	if *list {
		handleListCommand(m)
		return
	}

	path := flag.Arg(0)
	if path == "" {
		if m == nil {
			fmt.Fprintln(os.Stderr, "Error: no script argument and no mil.toml found")
			os.Exit(1)
		}
		path = m.EntryPath()
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fatalf("%v", err)
	}

	log.Infof("compiling %s", path)
	code, err := compiler.Build(string(src))
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	log.Infof("compiled %s (%d bytes)", path, len(code))

	if *output != "" {
		if err := os.WriteFile(*output, code, 0o644); err != nil {
			fatalf("%v", err)
		}
		if *verbose {
			fmt.Printf("Wrote %d bytes to %s\n", len(code), *output)
		}
	} else if !*run && !*disasm && !*store {
		fmt.Printf("%x\n", code)
	}

	if *disasm {
		text, err := vm.Disassemble(code)
		if err != nil {
			fatalf("disassembly failed: %v", err)
		}
		fmt.Print(text)
	}

	if *store {
		handleStoreCommand(m, path, code)
	}

	if *run {
		result, err := vm.NewMachine().Run(code)
		if err != nil {
			fatalf("execution failed: %v", err)
		}
		if result != nil {
			fmt.Println(result)
		}
	}
}
