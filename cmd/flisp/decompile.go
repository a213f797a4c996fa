package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/moduleio"
)

func runDecompile(args []string) error {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	in := fs.String("in", "", "module image to inspect (.fmod)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return fmt.Errorf("decompile requires -in")
	}

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *in, err)
	}
	defer src.Close()

	mod, err := moduleio.Decode(src)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", *in, err)
	}
	return bytecode.Decompile(os.Stdout, mod)
}
