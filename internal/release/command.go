package release

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context, name string, args []string, opts ...Option) (string, error)
}

type Options struct {
	Dir    string
	Env    map[string]string
	Output io.Writer
}

type Option func(*Options)

func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithOutput tees stdout and stderr of the command to w while still capturing them.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

type ExecRunner struct {
	log    *zap.Logger
	output io.Writer
}

// NewExecRunner returns a Runner backed by os/exec. When output is non-nil every
// command's output is teed to it unless overridden per call.
func NewExecRunner(log *zap.Logger, output io.Writer) *ExecRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecRunner{log: log, output: output}
}

func (r *ExecRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	opts ...Option,
) (string, error) {
	options := &Options{Output: r.output}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = options.Dir
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdout, stderr bytes.Buffer
	if options.Output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, options.Output)
		cmd.Stderr = io.MultiWriter(&stderr, options.Output)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	command := strings.TrimSpace(name + " " + strings.Join(args, " "))
	r.log.Debug("running command", zap.String("command", command), zap.String("dir", options.Dir))

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.String(), &CommandExecutionError{
			Command:  command,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return stdout.String(), nil
}
