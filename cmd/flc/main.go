package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"flc/pkg/asm"
	"flc/pkg/compiler"
	"flc/pkg/cpu"
	"flc/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, afero.NewOsFs()))
}

type options struct {
	output   string
	tokens   bool
	tree     bool
	debug    bool
	annotate bool
	run      bool
	maxSteps int
	verbose  bool
}

// run executes one flc invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, fs afero.Fs) int {
	var opts options
	flags := flag.NewFlagSet("flc", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.output, "output", "o", "", "artifact path (default: source name with "+utils.ArtifactExt+")")
	flags.BoolVar(&opts.tokens, "tokens", false, "scan only and print every token")
	flags.BoolVar(&opts.tree, "tree", false, "parse only and print the syntax tree")
	flags.BoolVar(&opts.debug, "debug-tree", false, "parse only and dump the raw tree structure")
	flags.BoolVar(&opts.annotate, "annotate", false, "emit comments into the generated assembly")
	flags.BoolVar(&opts.run, "run", false, "execute the artifact after compiling")
	flags.IntVar(&opts.maxSteps, "max-steps", 0, "abort --run after this many instructions (0: unlimited)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: flc [flags] [source%s]\n\nWith no source the program is read from standard input.\n\n", utils.SourceExt)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return 2
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if opts.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	src := ""
	if flags.NArg() == 1 {
		if src, err = utils.ResolveSource(flags.Arg(0)); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	d := &driver{opts: opts, stdin: stdin, stdout: stdout, fs: fs, log: logger}
	switch {
	case opts.tokens, opts.tree, opts.debug:
		err = d.inspect(src)
	default:
		err = d.compile(src)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type driver struct {
	opts   options
	stdin  io.Reader
	stdout io.Writer
	fs     afero.Fs
	log    *zap.Logger
}

func (d *driver) readSource(src string) ([]byte, error) {
	if src == "" {
		data, err := io.ReadAll(d.stdin)
		return data, errors.Wrap(err, "read source <stdin>")
	}
	data, err := afero.ReadFile(d.fs, src)
	return data, errors.Wrapf(err, "read source %s", src)
}

// inspect runs the scan-only and parse-only modes.
func (d *driver) inspect(src string) error {
	data, err := d.readSource(src)
	if err != nil {
		return err
	}
	if d.opts.tokens {
		return compiler.DumpTokens(d.stdout, bytes.NewReader(data))
	}
	root, err := compiler.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if d.opts.debug {
		_, err = io.WriteString(d.stdout, litter.Sdump(root)+"\n")
		return errors.Wrap(err, "write tree")
	}
	return compiler.Dump(d.stdout, root)
}

func (d *driver) compile(src string) error {
	output := d.opts.output
	if output == "" {
		output = utils.ArtifactPath(src)
	}
	session := compiler.NewSession(d.fs, compiler.WithLogger(d.log), compiler.WithComments(d.opts.annotate))
	var err error
	if src != "" {
		err = session.CompileFile(src, output)
	} else {
		err = session.CompileReader(d.stdin, output)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(d.stdout, output)

	if !d.opts.run {
		return nil
	}
	full, _, err := utils.GetPathInfo(output)
	if err != nil {
		return err
	}
	d.log.Debug("running artifact", zap.String("path", full))
	prog, err := asm.LoadFile(d.fs, output)
	if err != nil {
		return err
	}
	// a program read from stdin has consumed it; READ then hits end of input
	vm := cpu.NewCPU(prog, cpu.Config{Input: d.stdin, Output: d.stdout, MaxSteps: d.opts.maxSteps})
	return vm.Run()
}
