package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// SocketProbe validates the server's Unix domain socket: the path must
// exist, be a socket special file, and accept a connection. A socket file
// that refuses connections is the classic stale leftover of a crashed
// server, worth distinguishing from a missing one.
type SocketProbe struct {
	// Path is the socket location.
	Path string
	// DialTimeout bounds the reachability check.
	DialTimeout time.Duration
	// StartHint is the remediation shown when the socket is absent or stale.
	StartHint string
}

func (p *SocketProbe) Name() string { return "socket-health" }

func (p *SocketProbe) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{Name: p.Name()}
	defer func() { result.Duration = time.Since(start) }()

	info, err := os.Stat(p.Path)
	if err != nil {
		result.Outcome = OutcomeFailed
		if os.IsNotExist(err) {
			result.Detail = fmt.Sprintf("socket not found: %s", p.Path)
			result.Remediation = p.StartHint
		} else {
			result.Detail = fmt.Sprintf("cannot stat %s: %v", p.Path, err)
			result.Remediation = fmt.Sprintf("Check permissions on %s", p.Path)
		}
		return result
	}

	// File size is meaningless for a socket special file; the type is what
	// matters.
	if info.Mode()&os.ModeSocket == 0 {
		result.Outcome = OutcomeFailed
		result.Detail = fmt.Sprintf("%s exists but is not a socket (mode %s)", p.Path, info.Mode())
		result.Remediation = fmt.Sprintf("Remove %s and restart the server", p.Path)
		return result
	}

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", p.Path)
	if err != nil {
		result.Outcome = OutcomeFailed
		if errors.Is(err, syscall.ECONNREFUSED) {
			result.Detail = fmt.Sprintf("stale socket file: %s refuses connections", p.Path)
			result.Remediation = fmt.Sprintf("Remove %s and restart the server. %s", p.Path, p.StartHint)
		} else {
			result.Detail = fmt.Sprintf("cannot connect to %s: %v", p.Path, err)
			result.Remediation = p.StartHint
		}
		return result
	}
	conn.Close()

	result.Outcome = OutcomePassed
	result.Detail = fmt.Sprintf("socket accepting connections: %s", p.Path)
	return result
}
