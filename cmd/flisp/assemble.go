package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/flisp-vm/flisp/asmtext"
	"github.com/flisp-vm/flisp/moduleio"
)

func runAssemble(args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	in := fs.String("in", "", "textual assembly source (.fasm)")
	out := fs.String("out", "", "output module image path (.fmod)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("assemble requires -in and -out")
	}

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *in, err)
	}
	defer src.Close()

	mod, err := asmtext.Assemble(src)
	if err != nil {
		return fmt.Errorf("assembling %s: %w", *in, err)
	}

	dst, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *out, err)
	}
	defer dst.Close()

	if err := moduleio.Encode(dst, mod); err != nil {
		return fmt.Errorf("encoding %s: %w", *out, err)
	}
	fmt.Printf("assembled %s -> %s (%d functions, %d constants)\n", *in, *out, len(mod.Functions), len(mod.Constants))
	return nil
}
