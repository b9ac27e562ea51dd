// Package transport manages the connection to the server under test. Two
// variants satisfy the same contract: a direct Unix-domain-socket connection
// and a subprocess whose standard streams carry the frames. The variant is
// fixed by the Target at construction time, never chosen per call.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// FailureKind classifies a transport error for diagnostics.
type FailureKind string

const (
	FailureNotFound         FailureKind = "not-found"
	FailurePermissionDenied FailureKind = "permission-denied"
	FailureTimeout          FailureKind = "timeout"
	FailureRefused          FailureKind = "connection-refused"
	FailureBrokenPipe       FailureKind = "broken-pipe"
	FailureClosed           FailureKind = "connection-closed"
	FailureUnknown          FailureKind = "unknown"
)

// Classify maps an error returned by a Transport or Conn to a FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureUnknown
	case errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, os.ErrNotExist):
		return FailureNotFound
	case errors.Is(err, os.ErrPermission):
		return FailurePermissionDenied
	case errors.Is(err, syscall.ECONNREFUSED):
		return FailureRefused
	case errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET):
		return FailureBrokenPipe
	case errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed):
		return FailureClosed
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return FailureTimeout
		}
		return FailureUnknown
	}
}

// Target describes how to reach the server under test. Exactly one of
// SocketPath and Command is set. A Target is immutable once constructed and
// chosen once per harness invocation.
type Target struct {
	// SocketPath is the Unix domain socket the server listens on.
	SocketPath string
	// Command is the argument vector of a subprocess that bridges frames
	// over its standard streams (e.g. a socat wrapper).
	Command []string
}

// SocketTarget builds a Target for a Unix domain socket.
func SocketTarget(path string) Target {
	return Target{SocketPath: path}
}

// CommandTarget builds a Target for a stdio-bridged subprocess.
func CommandTarget(argv []string) Target {
	return Target{Command: argv}
}

// Validate checks that the target selects exactly one transport variant.
func (t Target) Validate() error {
	if t.SocketPath != "" && len(t.Command) > 0 {
		return fmt.Errorf("target selects both socket %q and command %q", t.SocketPath, t.Command[0])
	}
	if t.SocketPath == "" && len(t.Command) == 0 {
		return errors.New("target selects neither a socket path nor a command")
	}
	return nil
}

func (t Target) String() string {
	if t.SocketPath != "" {
		return "unix:" + t.SocketPath
	}
	return "cmd:" + strings.Join(t.Command, " ")
}

// Conn is one open connection to the server under test. Implementations own
// the underlying handle exclusively; Close is safe to call on every exit
// path and more than once.
type Conn interface {
	// Send writes one encoded frame. Bounded by the context deadline or the
	// transport's default I/O timeout, whichever is sooner.
	Send(ctx context.Context, data []byte) error
	// Receive reads up to max bytes. Every call is time-bounded; an
	// indefinite block is a defect, since a server that received a malformed
	// request may simply never answer.
	Receive(ctx context.Context, max int) ([]byte, error)
	// Close releases the connection. For the stdio variant this terminates
	// the child's process group after a grace period.
	Close() error
}

// Transport opens connections to a fixed Target.
type Transport interface {
	// Open establishes a connection, failing within the connect timeout.
	Open(ctx context.Context) (Conn, error)
	// Target returns the target this transport was built for.
	Target() Target
}

// Options tune transport behavior. Zero values fall back to the defaults.
type Options struct {
	// ConnectTimeout bounds Open.
	ConnectTimeout time.Duration
	// IOTimeout bounds each Send and Receive without a sooner ctx deadline.
	IOTimeout time.Duration
	// StopGrace is how long the stdio variant waits between SIGTERM and
	// SIGKILL when closing.
	StopGrace time.Duration
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultIOTimeout      = 10 * time.Second
	defaultStopGrace      = 3 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = defaultIOTimeout
	}
	if o.StopGrace <= 0 {
		o.StopGrace = defaultStopGrace
	}
	return o
}

// New builds the transport variant selected by the target.
func New(target Target, opts Options) (Transport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if target.SocketPath != "" {
		return &socketTransport{target: target, opts: opts}, nil
	}
	return &stdioTransport{target: target, opts: opts}, nil
}

// deadlineFor resolves the effective deadline for one I/O call: the context
// deadline when present and sooner, otherwise now+fallback.
func deadlineFor(ctx context.Context, fallback time.Duration) time.Time {
	deadline := time.Now().Add(fallback)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}
