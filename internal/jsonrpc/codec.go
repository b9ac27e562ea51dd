// Package jsonrpc implements the JSON-RPC 2.0 envelope codec used by the
// harness: newline-delimited framing on the way out, tolerant frame
// reassembly on the way in, and strict envelope validation with distinct
// error values for each way a response can be wrong.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrIncompleteFrame signals that the buffered bytes do not yet form a
// complete frame. Callers should receive more data and try again; this is
// never a protocol violation by itself.
var ErrIncompleteFrame = errors.New("incomplete frame")

// MalformedError reports bytes that form a complete frame but are not valid
// JSON.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed JSON frame: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// EnvelopeError reports a syntactically valid JSON object that is missing a
// required envelope member, or carries one with the wrong shape.
type EnvelopeError struct {
	Field  string
	Detail string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("invalid envelope: %s %s", e.Field, e.Detail)
}

// ErrAmbiguousEnvelope reports a response carrying both result and error.
// The 2.0 spec requires exactly one; a server sending both is broken in a
// way worth calling out separately from a missing member.
var ErrAmbiguousEnvelope = errors.New("ambiguous envelope: both result and error present")

// IDMismatchError reports a response whose id does not match the single
// outstanding request on the connection.
type IDMismatchError struct {
	Want int64
	Got  int64
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("response id %d does not match request id %d", e.Got, e.Want)
}

// Encode serializes a request and appends the newline delimiter.
func Encode(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return append(data, '\n'), nil
}

// FrameReader reassembles newline-delimited frames from arbitrarily chunked
// reads. As a concession to servers that omit the trailing delimiter, a
// buffer that already holds one complete JSON value is yielded as a frame
// without waiting for a newline.
type FrameReader struct {
	buf bytes.Buffer
}

// Feed appends received bytes to the reassembly buffer.
func (f *FrameReader) Feed(p []byte) {
	f.buf.Write(p)
}

// Buffered reports how many bytes are waiting in the reassembly buffer.
func (f *FrameReader) Buffered() int {
	return f.buf.Len()
}

// Next returns the next complete frame, or ErrIncompleteFrame when more data
// is needed.
func (f *FrameReader) Next() ([]byte, error) {
	data := f.buf.Bytes()
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		frame := make([]byte, i)
		copy(frame, data[:i])
		f.buf.Next(i + 1)
		return bytes.TrimSpace(frame), nil
	}
	// No delimiter yet. Accept an undelimited but complete JSON value.
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		frame := make([]byte, len(trimmed))
		copy(frame, trimmed)
		f.buf.Reset()
		return frame, nil
	}
	return nil, ErrIncompleteFrame
}

// rawResponse mirrors Response but keeps result as raw bytes so that an
// explicit JSON null result is distinguishable from an absent member.
type rawResponse struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Decode validates one frame against the response envelope schema and the
// id of the outstanding request. Each failure mode gets its own error type:
// MalformedError for bad JSON, EnvelopeError for missing members,
// ErrAmbiguousEnvelope for result+error, IDMismatchError for a stray id.
func Decode(frame []byte, wantID int64) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, &MalformedError{Err: err}
	}
	if raw.JSONRPC == nil {
		return nil, &EnvelopeError{Field: "jsonrpc", Detail: "member missing"}
	}
	if *raw.JSONRPC != Version {
		return nil, &EnvelopeError{Field: "jsonrpc", Detail: fmt.Sprintf("version %q, want %q", *raw.JSONRPC, Version)}
	}
	if raw.ID == nil {
		return nil, &EnvelopeError{Field: "id", Detail: "member missing"}
	}
	hasResult := len(raw.Result) > 0
	hasError := raw.Error != nil
	if hasResult && hasError {
		return nil, ErrAmbiguousEnvelope
	}
	if !hasResult && !hasError {
		return nil, &EnvelopeError{Field: "result/error", Detail: "neither member present"}
	}
	if *raw.ID != wantID {
		return nil, &IDMismatchError{Want: wantID, Got: *raw.ID}
	}
	return &Response{
		JSONRPC: *raw.JSONRPC,
		ID:      raw.ID,
		Result:  raw.Result,
		Error:   raw.Error,
	}, nil
}
