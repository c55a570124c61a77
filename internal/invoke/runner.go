package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// drainGrace bounds how long output is read after the tool exits. A
// grandchild that inherited the pipes can otherwise hold them open.
const drainGrace = 2 * time.Second

// Request describes one formatter invocation.
type Request struct {
	// Name is the formatter name, used for process tracking and logs.
	Name string

	// Command holds the command tokens before variable expansion.
	Command []string

	// Input is the text to format.
	Input string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout kills the tool after this long. Zero means no timeout.
	Timeout time.Duration

	// Paths are prepended to PATH, both for finding the tool and for
	// the tool's own environment.
	Paths []string

	// Env holds extra KEY=VALUE entries for the tool's environment.
	Env []string

	// Vars are substituted into Command.
	Vars Variables
}

// Runner executes formatter requests.
type Runner struct {
	supervisor *Supervisor
	builtins   map[string]Builtin
	logger     *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSupervisor sets the supervisor processes are tracked by.
func WithSupervisor(s *Supervisor) RunnerOption {
	return func(r *Runner) {
		r.supervisor = s
	}
}

// WithBuiltin registers an in-process formatter under "@name".
func WithBuiltin(name string, fn Builtin) RunnerOption {
	return func(r *Runner) {
		r.builtins[name] = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner. Without WithSupervisor it tracks its
// processes with a private supervisor.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		builtins: defaultBuiltins(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.supervisor == nil {
		r.supervisor = NewSupervisor(WithSupervisorLogger(r.logger))
	}
	return r
}

// Supervisor returns the supervisor tracking the runner's processes.
func (r *Runner) Supervisor() *Supervisor {
	return r.supervisor
}

// Run formats req.Input and returns the result. ctx cancels the tool in
// addition to req.Timeout. Failures are *Error values.
func (r *Runner) Run(ctx context.Context, req Request) (string, error) {
	if len(req.Command) == 0 {
		return "", ErrEmptyCommand
	}

	if name, ok := strings.CutPrefix(req.Command[0], BuiltinPrefix); ok {
		return r.runBuiltin(name, req)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if !UsesTempFile(req.Command) {
		args := Expand(req.Command, req.Vars)
		return r.exec(ctx, req, args, req.Input)
	}

	tmp, err := writeTempFile(req.Input, req.Vars.File)
	if err != nil {
		return "", &Error{Command: req.Command, ExitCode: -1, Err: err}
	}
	defer os.Remove(tmp)

	vars := req.Vars
	vars.TempFile = tmp
	args := Expand(req.Command, vars)
	if _, err := r.exec(ctx, req, args, ""); err != nil {
		return "", err
	}

	out, err := os.ReadFile(tmp)
	if err != nil {
		return "", &Error{Command: args, ExitCode: -1, Err: fmt.Errorf("reading formatted file: %w", err)}
	}
	return string(out), nil
}

func (r *Runner) runBuiltin(name string, req Request) (string, error) {
	fn, ok := r.builtins[name]
	if !ok {
		return "", &Error{Command: req.Command, ExitCode: -1, Err: fmt.Errorf("%w: %s", ErrUnknownBuiltin, name)}
	}

	args := Expand(req.Command[1:], req.Vars)
	out, err := fn(req.Input, args, req.Vars)
	if err != nil {
		return "", &Error{Command: req.Command, ExitCode: -1, Err: err}
	}
	return out, nil
}

// exec runs args with input on stdin and returns stdout.
func (r *Runner) exec(ctx context.Context, req Request, args []string, input string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &Error{Command: args, ExitCode: -1, Err: err}
	}

	cmd := exec.Command(resolveExecutable(args[0], req.Paths), args[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = environ(req.Paths, req.Env)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fail(err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)
		return fail(err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)
		return fail(err)
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdinR, stdoutW, stderrW

	proc, err := r.supervisor.Start(req.Name, cmd)
	// The child holds its own copies now.
	closeAll(stdinR, stdoutW, stderrW)
	if err != nil {
		closeAll(stdinW, stdoutR, stderrR)
		return fail(err)
	}

	var stdout, stderr strings.Builder
	var g errgroup.Group
	g.Go(func() error {
		defer stdinW.Close()
		if _, err := io.WriteString(stdinW, input); err != nil && !errors.Is(err, syscall.EPIPE) {
			return fmt.Errorf("writing stdin: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutR)
		return ignoreClosed(err)
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrR)
		return ignoreClosed(err)
	})

	var cause error
	timedOut := false
	select {
	case <-proc.Done():
	case <-ctx.Done():
		_ = proc.Kill()
		<-proc.Done()
		cause = ctx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			timedOut = true
			cause = ErrTimeout
		}
	}

	drained := make(chan error, 1)
	go func() { drained <- g.Wait() }()

	var ioErr error
	select {
	case ioErr = <-drained:
	case <-time.After(drainGrace):
		closeAll(stdinW, stdoutR, stderrR)
		ioErr = <-drained
	}
	closeAll(stdoutR, stderrR)

	r.logger.Debug("formatter finished",
		zap.String("formatter", req.Name),
		zap.Strings("command", args),
		zap.Int("exit_code", proc.ExitCode()),
		zap.Duration("runtime", proc.Runtime()),
		zap.Bool("timed_out", timedOut))

	if cause == nil && proc.ExitCode() != 0 {
		cause = proc.ExitError()
	}
	if cause == nil && ioErr != nil {
		cause = ioErr
	}
	if cause != nil {
		return "", &Error{
			Command:  args,
			ExitCode: proc.ExitCode(),
			TimedOut: timedOut,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      cause,
		}
	}

	if stderr.Len() > 0 {
		r.logger.Debug("formatter wrote to stderr",
			zap.String("formatter", req.Name),
			zap.String("stderr", stderr.String()))
	}
	return stdout.String(), nil
}

// resolveExecutable finds name in dirs before falling back to PATH.
func resolveExecutable(name string, dirs []string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return p
		}
	}
	return name
}

// environ returns the process environment with paths prepended to PATH
// and extra appended.
func environ(paths, extra []string) []string {
	env := os.Environ()
	if len(paths) > 0 {
		prefix := strings.Join(paths, string(os.PathListSeparator))
		found := false
		for i, kv := range env {
			if v, ok := strings.CutPrefix(kv, "PATH="); ok {
				env[i] = "PATH=" + prefix + string(os.PathListSeparator) + v
				found = true
				break
			}
		}
		if !found {
			env = append(env, "PATH="+prefix)
		}
	}
	return append(env, extra...)
}

func writeTempFile(input, file string) (string, error) {
	f, err := os.CreateTemp("", "keyfmt-*"+filepath.Ext(file))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.WriteString(input); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	return f.Name(), nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
