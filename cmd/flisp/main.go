// Command flisp is the host CLI: assemble textual sources into the binary
// module format, decompile a module into a human-readable dump, and
// execute a named function of a module (main/main by default; exports are
// not consulted). Subcommand dispatch is hand-rolled on os.Args; each
// subcommand parses its own flags with a flag.FlagSet.
package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [options]

Commands:
  assemble   -in <file.fasm> -out <file.fmod>   compile textual assembly to a module image
  decompile  -in <file.fmod>                    print a module's functions and constants
  execute    -in <file.fmod> [-module NAME] [-function NAME] [-trace]
                                                 run a module's entry point (default main/main)

`, os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "assemble":
		err = runAssemble(os.Args[2:])
	case "decompile":
		err = runDecompile(os.Args[2:])
	case "execute":
		err = runExecute(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
