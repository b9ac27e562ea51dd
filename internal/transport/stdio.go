package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"mcpdiag/pkg/logging"
)

// stdioTransport runs the bridge command as a child process and exchanges
// frames over its standard streams.
type stdioTransport struct {
	target Target
	opts   Options
}

func (t *stdioTransport) Target() Target { return t.target }

func (t *stdioTransport) Open(ctx context.Context) (Conn, error) {
	argv := t.target.Command
	cmd := exec.Command(argv[0], argv[1:]...)
	// Own process group so Close can terminate the bridge and anything it
	// spawned (socat forks) in one signal.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe for %s: %w", argv[0], err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	logging.Debug("transport", "started bridge %s (pid %d)", argv[0], cmd.Process.Pid)

	c := &stdioConn{
		cmd:    cmd,
		stdin:  stdin,
		grace:  t.opts.StopGrace,
		io:     t.opts.IOTimeout,
		chunks: make(chan readChunk, 16),
		done:   make(chan struct{}),
	}
	go c.pump(stdout)
	return c, nil
}

type readChunk struct {
	data []byte
	err  error
}

// stdioConn owns the child process. A single pump goroutine reads stdout so
// that Receive can select against a deadline without leaking blocked reads.
type stdioConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	grace  time.Duration
	io     time.Duration
	chunks chan readChunk
	done   chan struct{}

	// leftover holds pump bytes a previous Receive did not drain.
	leftover []byte

	closeOnce sync.Once
	closeErr  error
}

func (c *stdioConn) pump(stdout io.Reader) {
	defer close(c.chunks)
	for {
		buf := make([]byte, 4096)
		n, err := stdout.Read(buf)
		if n > 0 {
			select {
			case c.chunks <- readChunk{data: buf[:n]}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case c.chunks <- readChunk{err: err}:
			case <-c.done:
			}
			return
		}
	}
}

func (c *stdioConn) Send(ctx context.Context, data []byte) error {
	// Pipe writes only block when the child stops draining; a stuck bridge
	// must still surface as a timeout rather than hanging the harness.
	result := make(chan error, 1)
	go func() {
		_, err := c.stdin.Write(data)
		result <- err
	}()

	deadline := time.NewTimer(time.Until(deadlineFor(ctx, c.io)))
	defer deadline.Stop()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("write to bridge: %w", err)
		}
		return nil
	case <-deadline.C:
		return fmt.Errorf("write to bridge: %w", os.ErrDeadlineExceeded)
	case <-ctx.Done():
		return fmt.Errorf("write to bridge: %w", ctx.Err())
	}
}

func (c *stdioConn) Receive(ctx context.Context, max int) ([]byte, error) {
	if len(c.leftover) > 0 {
		return c.take(max), nil
	}

	deadline := time.NewTimer(time.Until(deadlineFor(ctx, c.io)))
	defer deadline.Stop()

	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			return nil, fmt.Errorf("read from bridge: %w", io.EOF)
		}
		if chunk.err != nil {
			return nil, fmt.Errorf("read from bridge: %w", chunk.err)
		}
		c.leftover = chunk.data
		return c.take(max), nil
	case <-deadline.C:
		return nil, fmt.Errorf("read from bridge: %w", os.ErrDeadlineExceeded)
	case <-ctx.Done():
		return nil, fmt.Errorf("read from bridge: %w", ctx.Err())
	}
}

func (c *stdioConn) take(max int) []byte {
	n := len(c.leftover)
	if n > max {
		n = max
	}
	out := c.leftover[:n]
	c.leftover = c.leftover[n:]
	return out
}

// Close terminates the bridge: stdin is closed first so a well-behaved child
// exits on EOF, then the process group gets SIGTERM, then SIGKILL after the
// grace period.
func (c *stdioConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.stdin.Close()

		pid := c.cmd.Process.Pid
		exited := make(chan error, 1)
		go func() { exited <- c.cmd.Wait() }()

		select {
		case <-exited:
			logging.Debug("transport", "bridge pid %d exited on EOF", pid)
			return
		case <-time.After(250 * time.Millisecond):
		}

		if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
			logging.Debug("transport", "SIGTERM bridge pid %d: %v", pid, err)
		}
		select {
		case <-exited:
			logging.Debug("transport", "bridge pid %d exited on SIGTERM", pid)
		case <-time.After(c.grace):
			if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
				c.closeErr = fmt.Errorf("kill bridge process group %d: %w", pid, err)
				return
			}
			<-exited
			logging.Debug("transport", "bridge pid %d killed after grace period", pid)
		}
	})
	return c.closeErr
}
