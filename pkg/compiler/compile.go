package compiler

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/stateless"
	"github.com/spf13/afero"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

type config struct {
	log      *zap.Logger
	comments bool
}

// Option configures compilation.
type Option func(*config)

// WithLogger sets the logger for pipeline tracing. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithComments annotates the generated assembly with source constructs.
func WithComments(on bool) Option {
	return func(c *config) { c.comments = on }
}

func newConfig(opts []Option) config {
	c := config{log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Compile reads a program from r and writes its assembly to w.
func Compile(r io.Reader, w io.Writer, opts ...Option) error {
	root, err := Parse(r)
	if err != nil {
		return err
	}
	return Generate(root, NewSymbolTable(), w, opts...)
}

// CompileString compiles src and returns the assembly text.
func CompileString(src string, opts ...Option) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := Compile(strings.NewReader(src), buf, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DumpTokens writes every token of r to w, one per line, stopping at EOF
// or at the first lexical error, which is returned. The listing is written
// in one piece, including the ERROR token line.
func DumpTokens(w io.Writer, r io.Reader) error {
	s := NewScanner(r)
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	var scanErr error
	for done := false; !done; {
		tok := s.Next()
		_, _ = fmt.Fprintf(buf, "%s\n", tok)
		switch tok.Type {
		case ERROR:
			scanErr, done = s.Err(), true
		case EOF:
			done = true
		}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Wrap(err, "write tokens")
	}
	return scanErr
}

// Session states and triggers.
const (
	StateIdle       = "Idle"
	StateParsing    = "Parsing"
	StateGenerating = "Generating"
	StateDone       = "Done"
	StateFailed     = "Failed"

	triggerParse    = "Parse"
	triggerGenerate = "Generate"
	triggerFinish   = "Finish"
	triggerFail     = "Fail"
)

// Session compiles sources on a filesystem. An artifact is either written
// completely or removed: entering the Failed state deletes whatever output
// the session had started.
type Session struct {
	fs       afero.Fs
	cfg      config
	opts     []Option
	sm       *stateless.StateMachine
	artifact string // output path created by the current run
}

func NewSession(fs afero.Fs, opts ...Option) *Session {
	s := &Session{fs: fs, cfg: newConfig(opts), opts: opts}
	s.sm = stateless.NewStateMachine(StateIdle)

	s.sm.Configure(StateIdle).
		Permit(triggerParse, StateParsing)

	s.sm.Configure(StateParsing).
		OnEntry(func(_ context.Context, args ...any) error {
			s.artifact = ""
			s.cfg.log.Debug("parsing", zap.Any("source", firstArg(args)))
			return nil
		}).
		Permit(triggerGenerate, StateGenerating).
		Permit(triggerFail, StateFailed)

	s.sm.Configure(StateGenerating).
		OnEntry(func(_ context.Context, args ...any) error {
			s.cfg.log.Debug("generating", zap.String("artifact", s.artifact))
			return nil
		}).
		Permit(triggerFinish, StateDone).
		Permit(triggerFail, StateFailed)

	s.sm.Configure(StateDone).
		OnEntry(func(_ context.Context, args ...any) error {
			s.cfg.log.Info("compiled", zap.String("artifact", s.artifact), zap.Any("temporaries", firstArg(args)))
			return nil
		}).
		Permit(triggerParse, StateParsing)

	s.sm.Configure(StateFailed).
		OnEntry(func(_ context.Context, args ...any) error {
			s.cfg.log.Debug("compilation failed", zap.Any("error", firstArg(args)))
			if s.artifact == "" {
				return nil
			}
			path := s.artifact
			s.artifact = ""
			return errors.Wrapf(s.fs.Remove(path), "discard artifact %s", path)
		}).
		Permit(triggerParse, StateParsing)

	return s
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// State reports the lifecycle state of the last run.
func (s *Session) State() string {
	return fmt.Sprint(s.sm.MustState())
}

// Artifact is the path written by the last successful run.
func (s *Session) Artifact() string {
	if s.State() != StateDone {
		return ""
	}
	return s.artifact
}

// CompileFile compiles the source file src into dst.
func (s *Session) CompileFile(src, dst string) error {
	return s.compile(src, func() ([]byte, error) {
		data, err := afero.ReadFile(s.fs, src)
		return data, errors.Wrapf(err, "read source %s", src)
	}, dst)
}

// CompileReader compiles the program read from r into dst.
func (s *Session) CompileReader(r io.Reader, dst string) error {
	return s.compile("<stdin>", func() ([]byte, error) {
		data, err := io.ReadAll(r)
		return data, errors.Wrap(err, "read source <stdin>")
	}, dst)
}

func (s *Session) compile(name string, read func() ([]byte, error), dst string) error {
	if err := s.sm.Fire(triggerParse, name); err != nil {
		return errors.Wrap(err, "start session")
	}
	data, err := read()
	if err != nil {
		return s.fail(err)
	}
	if len(data) == 0 {
		return s.fail(errors.Wrap(ErrEmptySource, name))
	}
	root, err := Parse(bytes.NewReader(data))
	if err != nil {
		return s.fail(err)
	}

	f, err := s.fs.Create(dst)
	if err != nil {
		return s.fail(errors.Wrapf(err, "create artifact %s", dst))
	}
	s.artifact = dst
	if err := s.sm.Fire(triggerGenerate); err != nil {
		_ = f.Close()
		return s.fail(err)
	}

	bw := bufio.NewWriter(f)
	cg := newCodeGen(NewSymbolTable(), bw, s.opts...)
	genErr := cg.generate(root)
	if genErr == nil {
		genErr = errors.Wrap(bw.Flush(), "flush artifact")
	}
	if cerr := f.Close(); genErr == nil && cerr != nil {
		genErr = errors.Wrap(cerr, "close artifact")
	}
	if genErr != nil {
		return s.fail(genErr)
	}
	return errors.Wrap(s.sm.Fire(triggerFinish, cg.Temporaries()), "finish session")
}

// fail moves the session to Failed and returns cause unchanged.
func (s *Session) fail(cause error) error {
	if err := s.sm.Fire(triggerFail, cause); err != nil {
		s.cfg.log.Warn("failed to clean up after error", zap.Error(err))
	}
	return cause
}
