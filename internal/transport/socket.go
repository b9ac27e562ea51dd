package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"mcpdiag/pkg/logging"
)

// socketTransport dials a Unix domain socket.
type socketTransport struct {
	target Target
	opts   Options
}

func (t *socketTransport) Target() Target { return t.target }

func (t *socketTransport) Open(ctx context.Context) (Conn, error) {
	dialer := net.Dialer{Timeout: t.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", t.target.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", t.target, err)
	}
	logging.Debug("transport", "connected to %s", t.target)
	return &socketConn{conn: conn, ioTimeout: t.opts}, nil
}

// socketConn owns one net.Conn. All reads and writes carry a deadline.
type socketConn struct {
	conn      net.Conn
	ioTimeout Options

	closeOnce sync.Once
	closeErr  error
}

func (c *socketConn) Send(ctx context.Context, data []byte) error {
	if err := c.conn.SetWriteDeadline(deadlineFor(ctx, c.ioTimeout.IOTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *socketConn) Receive(ctx context.Context, max int) ([]byte, error) {
	if err := c.conn.SetReadDeadline(deadlineFor(ctx, c.ioTimeout.IOTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	buf := make([]byte, max)
	n, err := c.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, nil
}

func (c *socketConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		logging.Debug("transport", "connection closed")
	})
	return c.closeErr
}
