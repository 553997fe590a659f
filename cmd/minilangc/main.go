// Command minilangc is a thin front that invokes lexer -> parser -> emit
// and writes the resulting LLVM IR to stdout or a -o file (§4.5). Object
// emission and JIT execution remain external collaborators.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/codeassociates/minilang/emit"
	"github.com/codeassociates/minilang/internal/diag"
	"github.com/codeassociates/minilang/lexer"
	"github.com/codeassociates/minilang/parser"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	outputFile := flag.String("o", "", "Output file (default: stdout)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "minilangc - a MiniLang to LLVM IR compiler\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.ml>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("minilangc version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	errLabel := color.New(color.FgRed, color.Bold)
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		errLabel = nil
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	l := lexer.New(string(src))
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		diag.FprintAll(os.Stderr, errLabel, errs)
		os.Exit(1)
	}

	ir, err := emit.New().Generate(program)
	if err != nil {
		diag.Fprint(os.Stderr, errLabel, err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(ir), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(ir)
}
