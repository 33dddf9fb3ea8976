package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"flc/pkg/asm"
	"flc/pkg/cpu"
)

func main() {
	var (
		maxSteps   int
		stackLimit int
		verbose    bool
	)
	flag.IntVar(&maxSteps, "max-steps", 0, "abort after this many instructions (0: unlimited)")
	flag.IntVar(&stackLimit, "stack", cpu.DefaultStackLimit, "runtime stack limit")
	flag.BoolVarP(&verbose, "verbose", "v", false, "log execution summary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: flvm [flags] program.asm")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	path := flag.Arg(0)
	prog, err := asm.LoadFile(afero.NewOsFs(), path)
	if err != nil {
		logger.Error("load failed", zap.String("path", path), zap.Error(err))
		os.Exit(1)
	}
	logger.Debug("loaded", zap.String("path", path), zap.Int("instructions", len(prog.Code)), zap.Int("storage", len(prog.Slots)))

	vm := cpu.NewCPU(prog, cpu.Config{MaxSteps: maxSteps, StackLimit: stackLimit})
	if err := vm.Run(); err != nil {
		logger.Error("execution failed", zap.Int("steps", vm.Steps), zap.Error(err))
		os.Exit(1)
	}
	logger.Debug("halted", zap.Int("steps", vm.Steps), zap.Int("acc", vm.Acc))
}
