package mockserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opts ...Option) net.Conn {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "mock.sock")
	srv := New("nixai", opts...)
	ln, err := srv.ListenUnix(socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func exchange(t *testing.T, conn net.Conn, req string) map[string]any {
	t.Helper()

	_, err := conn.Write([]byte(req + "\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(line, &envelope))
	return envelope
}

func TestInitializeReportsIdentity(t *testing.T) {
	conn := startServer(t)

	envelope := exchange(t, conn, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	assert.Equal(t, "2.0", envelope["jsonrpc"])
	assert.Equal(t, float64(1), envelope["id"])

	result, ok := envelope["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])

	serverInfo, ok := result["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nixai", serverInfo["name"])
}

func TestToolsListAdvertisesDefaultTool(t *testing.T) {
	conn := startServer(t)

	envelope := exchange(t, conn, `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`)

	result, ok := envelope["result"].(map[string]any)
	require.True(t, ok)
	tools, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)

	tool, ok := tools[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "query_nixos_docs", tool["name"])
	assert.NotEmpty(t, tool["description"])
	assert.Contains(t, tool, "inputSchema")
}

func TestToolCallReturnsTextContent(t *testing.T) {
	conn := startServer(t)

	envelope := exchange(t, conn,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"query_nixos_docs","arguments":{"query":"services.nginx.enable"}}}`)

	result, ok := envelope["result"].(map[string]any)
	require.True(t, ok)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)

	item, ok := content[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text", item["type"])
	assert.Contains(t, item["text"], "services.nginx.enable")
}

func TestUnknownToolReturnsError(t *testing.T) {
	conn := startServer(t)

	envelope := exchange(t, conn,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`)

	assert.NotContains(t, envelope, "result")
	rpcErr, ok := envelope["error"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, rpcErr["message"], "no_such_tool")
}

func TestUnknownMethodReturnsError(t *testing.T) {
	conn := startServer(t)

	envelope := exchange(t, conn, `{"jsonrpc":"2.0","id":5,"method":"resources/list","params":{}}`)

	rpcErr, ok := envelope["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(-32601), rpcErr["code"])
}

func TestWrongIDBehavior(t *testing.T) {
	conn := startServer(t, WithBehavior("initialize", BehaviorWrongID))

	envelope := exchange(t, conn, `{"jsonrpc":"2.0","id":7,"method":"initialize","params":{}}`)

	assert.Equal(t, float64(1007), envelope["id"])
}

func TestGarbageBehavior(t *testing.T) {
	conn := startServer(t, WithBehavior("initialize", BehaviorGarbage))

	_, err := conn.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)
	assert.False(t, json.Valid(line))
}

func TestSilentBehaviorSaysNothing(t *testing.T) {
	conn := startServer(t, WithBehavior("initialize", BehaviorSilent))

	_, err := conn.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	assert.Zero(t, n)
	require.Error(t, err)
}

func TestAmbiguousBehaviorCarriesBothMembers(t *testing.T) {
	conn := startServer(t, WithBehavior("initialize", BehaviorAmbiguous))

	envelope := exchange(t, conn, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	assert.Contains(t, envelope, "result")
	assert.Contains(t, envelope, "error")
}

func TestCustomCallText(t *testing.T) {
	conn := startServer(t, WithCallText(func(tool string, args map[string]any) (string, bool) {
		return "canned answer for " + tool, true
	}))

	envelope := exchange(t, conn,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"anything","arguments":{}}}`)

	result := envelope["result"].(map[string]any)
	content := result["content"].([]any)
	item := content[0].(map[string]any)
	assert.Equal(t, "canned answer for anything", item["text"])
}
