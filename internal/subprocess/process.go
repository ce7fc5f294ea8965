package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/agent-bridge-go/internal/config"
	"github.com/wagiedev/agent-bridge-go/internal/errors"
)

const (
	// maxFrameSize is the longest stdout line accepted as one frame.
	maxFrameSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize caps the stderr kept for ProcessError. The
	// callback still sees every line.
	maxStderrBufferSize = 64 * 1024
	// writeAbandonTimeout bounds the wait for a write unblocked by closing stdin.
	writeAbandonTimeout = time.Second
)

var (
	// ErrNoCommand is returned by NewDialer when Options.Command is empty.
	ErrNoCommand = stderrors.New("subprocess: no bridge command configured")

	// ErrBinaryCodec is returned by NewDialer for codecs that cannot be line-delimited.
	ErrBinaryCodec = stderrors.New("subprocess: line-delimited transport requires a text codec")

	// ErrStdinClosed is returned by SendMessage after a cancelled write closed stdin.
	ErrStdinClosed = stderrors.New("subprocess: stdin closed")

	// ErrClosed is returned by SendMessage after Close.
	ErrClosed = stderrors.New("subprocess: connection closed")
)

// Compile-time verification of the transport interfaces.
var (
	_ config.Dialer = (*Dialer)(nil)
	_ config.Conn   = (*Conn)(nil)
)

// Dialer spawns a fresh bridge process per Dial.
type Dialer struct {
	log      *slog.Logger
	path     string
	args     []string
	env      []string
	dir      string
	onStderr func(string)
}

// NewDialer creates a Dialer for opts.Command.
func NewDialer(log *slog.Logger, opts *config.Options) (*Dialer, error) {
	opts = opts.WithDefaults()

	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return nil, ErrNoCommand
	}

	if opts.Codec.Binary() {
		return nil, fmt.Errorf("%w: %s", ErrBinaryCodec, opts.Codec.Name())
	}

	return &Dialer{
		log:      log.With("component", "subprocess"),
		path:     opts.Command[0],
		args:     opts.Command[1:],
		env:      opts.Env,
		dir:      opts.Dir,
		onStderr: opts.Stderr,
	}, nil
}

// Dial implements config.Dialer.
//
// The process is not bound to ctx; it runs until Close or until it exits.
func (d *Dialer) Dial(ctx context.Context) (config.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	//nolint:gosec // G204: the bridge command is operator configuration
	cmd := exec.Command(d.path, d.args...)
	cmd.Dir = d.dir

	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		d.log.Error("Failed to start bridge process", "path", d.path, "error", err)

		return nil, fmt.Errorf("start process: %w", err)
	}

	d.log.Info("Bridge process started", "path", d.path, "pid", cmd.Process.Pid)

	return &Conn{
		log:      d.log.With("pid", cmd.Process.Pid),
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		onStderr: d.onStderr,
		messages: make(chan []byte, 16),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}, nil
}

// Conn is one running bridge process.
type Conn struct {
	log      *slog.Logger
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   io.ReadCloser
	onStderr func(string)

	// writeMu serializes writes and guards stdinClosed.
	writeMu     sync.Mutex
	stdin       io.WriteCloser
	stdinClosed bool

	readOnce sync.Once
	messages chan []byte
	errs     chan error

	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

// ReadMessages implements config.Conn. The read goroutine starts on the
// first call; later calls return the same channels.
func (c *Conn) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	c.readOnce.Do(func() {
		go c.readLoop(ctx)
	})

	return c.messages, c.errs
}

// readLoop forwards stdout lines, then reaps the process.
func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.errs)
	defer close(c.messages)
	defer c.log.Debug("Process read loop stopped")

	// Stderr must be fully read before Wait closes the pipe.
	var stderrWg sync.WaitGroup

	stderrWg.Go(c.drainStderr)

	scanErr := c.scan(ctx)
	if scanErr != nil {
		_ = c.kill()
	}

	stderrWg.Wait()

	waitErr := c.cmd.Wait()

	if c.closing() {
		c.log.Debug("Bridge process terminated during shutdown")

		return
	}

	if scanErr != nil {
		c.errs <- scanErr

		return
	}

	if waitErr != nil {
		exitCode := -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
			exitCode = exitErr.ExitCode()
		}

		stderr := c.stderrOutput()
		c.log.Error("Bridge process exited with error", "exit_code", exitCode, "stderr", stderr)

		c.errs <- &errors.ProcessError{ExitCode: exitCode, Stderr: stderr, Err: waitErr}

		return
	}

	c.log.Info("Bridge process exited")
}

func (c *Conn) scan(ctx context.Context) error {
	scanner := bufio.NewScanner(c.stdout)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		select {
		case c.messages <- bytes.Clone(line):
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdout: %w", err)
	}

	return nil
}

func (c *Conn) drainStderr() {
	scanner := bufio.NewScanner(c.stderr)
	for scanner.Scan() {
		line := scanner.Text()

		c.stderrMu.Lock()

		if c.stderrBuf.Len() < maxStderrBufferSize {
			if c.stderrBuf.Len() > 0 {
				c.stderrBuf.WriteByte('\n')
			}

			c.stderrBuf.WriteString(line)
		}

		c.stderrMu.Unlock()

		if c.onStderr != nil {
			c.onStderr(line)
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Debug("Stderr scanner error", "error", err)
	}
}

func (c *Conn) stderrOutput() string {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()

	return strings.TrimSpace(c.stderrBuf.String())
}

// SendMessage implements config.Conn. Each frame is written as one line.
//
// If ctx is cancelled while the write is blocked, stdin is closed to
// unblock it and later calls return ErrStdinClosed.
func (c *Conn) SendMessage(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closing() {
		return ErrClosed
	}

	if c.stdinClosed {
		return ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy so the caller's backing array is never written.
	line := make([]byte, len(data), len(data)+1)
	copy(line, data)

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	written := make(chan error, 1)

	go func() {
		_, err := c.stdin.Write(line)
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-c.done:
		<-written

		return ErrClosed

	case <-ctx.Done():
		c.log.Debug("Context cancelled during write, closing stdin")

		_ = c.stdin.Close()
		c.stdinClosed = true

		select {
		case <-written:
		case <-time.After(writeAbandonTimeout):
			c.log.Warn("Write did not return after stdin close")
		}

		return ctx.Err()
	}
}

// Close kills the process. It's safe to call Close multiple times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		_ = c.stdin.Close()
		c.closeErr = c.kill()

		// Reap the process even if nobody read from it.
		c.readOnce.Do(func() {
			go c.readLoop(context.Background())
		})
	})

	return c.closeErr
}

func (c *Conn) kill() error {
	err := c.cmd.Process.Kill()
	if err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill bridge process (pid %d): %w", c.cmd.Process.Pid, err)
	}

	return nil
}

func (c *Conn) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
