package transport

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoListener accepts one connection and echoes everything back.
func echoListener(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "echo.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return socketPath
}

func TestTargetValidate(t *testing.T) {
	assert.NoError(t, SocketTarget("/tmp/x.sock").Validate())
	assert.NoError(t, CommandTarget([]string{"socat", "-"}).Validate())
	assert.Error(t, Target{}.Validate())
	assert.Error(t, Target{SocketPath: "/tmp/x.sock", Command: []string{"socat"}}.Validate())
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "unix:/tmp/x.sock", SocketTarget("/tmp/x.sock").String())
	assert.Equal(t, "cmd:socat -", CommandTarget([]string{"socat", "-"}).String())
}

func TestSocketSendReceive(t *testing.T) {
	socketPath := echoListener(t)

	tr, err := New(SocketTarget(socketPath), Options{})
	require.NoError(t, err)

	ctx := context.Background()
	conn, err := tr.Open(ctx)
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"initialize\",\"params\":{}}\n")
	require.NoError(t, conn.Send(ctx, payload))

	got, err := conn.Receive(ctx, 4096)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSocketOpenNotFound(t *testing.T) {
	tr, err := New(SocketTarget(filepath.Join(t.TempDir(), "absent.sock")), Options{ConnectTimeout: time.Second})
	require.NoError(t, err)

	_, err = tr.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailureNotFound, Classify(err))
}

func TestSocketOpenRefusedOnStaleSocket(t *testing.T) {
	// A socket file with no listener behind it refuses connections.
	socketPath := filepath.Join(t.TempDir(), "stale.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	// Close the listener but keep the file in place.
	unixLn := ln.(*net.UnixListener)
	unixLn.SetUnlinkOnClose(false)
	require.NoError(t, unixLn.Close())
	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)

	tr, err := New(SocketTarget(socketPath), Options{ConnectTimeout: time.Second})
	require.NoError(t, err)

	_, err = tr.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailureRefused, Classify(err))
}

func TestSocketReceiveTimesOut(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "silent.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		// Accept and hold the connection without ever answering.
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	tr, err := New(SocketTarget(socketPath), Options{IOTimeout: 100 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	conn, err := tr.Open(ctx)
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	_, err = conn.Receive(ctx, 4096)
	require.Error(t, err)
	assert.Equal(t, FailureTimeout, Classify(err))
	assert.Less(t, time.Since(start), time.Second, "receive must respect the deadline")
}

func TestSocketReceiveClosedByPeer(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "closing.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	tr, err := New(SocketTarget(socketPath), Options{IOTimeout: time.Second})
	require.NoError(t, err)

	conn, err := tr.Open(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(context.Background(), 4096)
	require.Error(t, err)
	assert.Equal(t, FailureClosed, Classify(err))
}

func TestSocketCloseIdempotent(t *testing.T) {
	socketPath := echoListener(t)
	tr, err := New(SocketTarget(socketPath), Options{})
	require.NoError(t, err)

	conn, err := tr.Open(context.Background())
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureRefused, Classify(syscall.ECONNREFUSED))
	assert.Equal(t, FailureBrokenPipe, Classify(syscall.EPIPE))
	assert.Equal(t, FailureTimeout, Classify(os.ErrDeadlineExceeded))
	assert.Equal(t, FailureNotFound, Classify(os.ErrNotExist))
	assert.Equal(t, FailurePermissionDenied, Classify(os.ErrPermission))
	assert.Equal(t, FailureUnknown, Classify(assert.AnError))
}
