package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAppendsNewline(t *testing.T) {
	req := NewRequest(1, "initialize", map[string]any{"protocolVersion": "2024-11-05"})
	data, err := Encode(req)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1], "frame must end with the newline delimiter")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2.0", decoded["jsonrpc"])
	assert.Equal(t, float64(1), decoded["id"])
	assert.Equal(t, "initialize", decoded["method"])
}

func TestEncodeNilParamsBecomesEmptyObject(t *testing.T) {
	req := NewRequest(2, "tools/list", nil)
	data, err := Encode(req)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	params, ok := decoded["params"]
	require.True(t, ok, "params must be present even when empty")
	assert.JSONEq(t, "{}", string(params))
}

func TestDecodeRoundTrip(t *testing.T) {
	// A request echoed back as a result envelope must round-trip the id.
	frame := []byte(`{"jsonrpc":"2.0","id":7,"result":{"echo":"tools/list"}}`)
	resp, err := Decode(frame, 7)
	require.NoError(t, err)
	require.NotNil(t, resp.ID)
	assert.Equal(t, int64(7), *resp.ID)
	assert.Nil(t, resp.Error)

	v, err := resp.ResultValue()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "tools/list"}, v)
}

func TestDecodeAcceptsConformingInitializeReply(t *testing.T) {
	frame := []byte(`{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"nixai"}}}`)
	resp, err := Decode(frame, 1)
	require.NoError(t, err)
	v, err := resp.ResultValue()
	require.NoError(t, err)
	result := v.(map[string]any)
	assert.Equal(t, "nixai", result["serverInfo"].(map[string]any)["name"])
}

func TestDecodeErrorEnvelope(t *testing.T) {
	frame := []byte(`{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"method not found"}}`)
	resp, err := Decode(frame, 3)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
	assert.Equal(t, "method not found", resp.Error.Message)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0",`), 1)
	var malformed *MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecodeMissingEnvelopeFields(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		field string
	}{
		{"missing jsonrpc", `{"id":1,"result":{}}`, "jsonrpc"},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"result":{}}`, "jsonrpc"},
		{"missing id", `{"jsonrpc":"2.0","result":{}}`, "id"},
		{"neither result nor error", `{"jsonrpc":"2.0","id":1}`, "result/error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame), 1)
			var envErr *EnvelopeError
			require.ErrorAs(t, err, &envErr)
			assert.Equal(t, tt.field, envErr.Field)
		})
	}
}

func TestDecodeAmbiguousEnvelope(t *testing.T) {
	frame := []byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`)
	_, err := Decode(frame, 1)
	assert.ErrorIs(t, err, ErrAmbiguousEnvelope)
}

func TestDecodeNullResultIsPresent(t *testing.T) {
	// An explicit null result satisfies the exactly-one-of invariant.
	frame := []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)
	resp, err := Decode(frame, 1)
	require.NoError(t, err)
	v, err := resp.ResultValue()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeIDMismatch(t *testing.T) {
	frame := []byte(`{"jsonrpc":"2.0","id":99,"result":{}}`)
	_, err := Decode(frame, 1)
	var mismatch *IDMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(1), mismatch.Want)
	assert.Equal(t, int64(99), mismatch.Got)
}

func TestFrameReaderReassemblesChunkedFrame(t *testing.T) {
	var fr FrameReader

	fr.Feed([]byte(`{"jsonrpc":"2.0",`))
	_, err := fr.Next()
	assert.ErrorIs(t, err, ErrIncompleteFrame)

	fr.Feed([]byte(`"id":1,"result":{}}` + "\n"))
	frame, err := fr.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, string(frame))
}

func TestFrameReaderAcceptsUndelimitedCompleteJSON(t *testing.T) {
	// Some servers answer without the trailing newline; a complete JSON value
	// in the buffer counts as a frame.
	var fr FrameReader
	fr.Feed([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	frame, err := fr.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, string(frame))
	assert.Zero(t, fr.Buffered())
}

func TestFrameReaderSplitsMultipleFrames(t *testing.T) {
	var fr FrameReader
	fr.Feed([]byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{}}\n{\"jsonrpc\":\"2.0\",\"id\":2,\"result\":{}}\n"))

	first, err := fr.Next()
	require.NoError(t, err)
	second, err := fr.Next()
	require.NoError(t, err)

	resp1, err := Decode(first, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *resp1.ID)
	resp2, err := Decode(second, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *resp2.ID)
}

func TestFrameReaderEmptyBuffer(t *testing.T) {
	var fr FrameReader
	_, err := fr.Next()
	assert.True(t, errors.Is(err, ErrIncompleteFrame))
}
