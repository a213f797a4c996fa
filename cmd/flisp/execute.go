package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/flisp-vm/flisp/moduleio"
	"github.com/flisp-vm/flisp/natives"
	"github.com/flisp-vm/flisp/vm"
	"go.uber.org/zap"
)

func runExecute(args []string) error {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	in := fs.String("in", "", "module image to run (.fmod)")
	moduleName := fs.String("module", "main", "module to resolve the entry point in")
	functionName := fs.String("function", "main", "function to invoke")
	heapSize := fs.Uint64("heap", 1<<20, "bytes per GC semi-space")
	trace := fs.Bool("trace", false, "log every dispatched opcode at debug level")
	gcStress := fs.Bool("gc-stress", false, "collect before every allocation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return fmt.Errorf("execute requires -in")
	}

	logger, err := newLogger(*trace)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer logger.Sync()

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *in, err)
	}
	defer src.Close()

	mod, err := moduleio.Decode(src)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", *in, err)
	}

	instance := vm.New(*heapSize,
		vm.WithLogger(logger),
		vm.WithTrace(*trace),
		vm.WithGCStress(*gcStress),
	)
	logger.Info("vm started", zap.String("instance", instance.ID().String()))

	if err := natives.Register(instance.Natives()); err != nil {
		return fmt.Errorf("registering natives: %w", err)
	}
	if err := instance.RegisterModule(mod); err != nil {
		return fmt.Errorf("registering %s: %w", *in, err)
	}

	result, err := instance.Run(*moduleName, *functionName)
	if err != nil {
		return fmt.Errorf("running %s/%s: %w", *moduleName, *functionName, err)
	}
	fmt.Println(natives.Display(instance.Heap(), result))
	return nil
}

func newLogger(trace bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if trace {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}
