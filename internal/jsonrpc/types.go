package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version carried in every envelope.
const Version = "2.0"

// Request is an outgoing JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// NewRequest builds a request with the version field set. A nil params value
// is replaced with an empty object; strict servers reject an omitted params
// member.
func NewRequest(id int64, method string, params any) *Request {
	if params == nil {
		params = map[string]any{}
	}
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// RPCError is the error member of a response envelope.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is a decoded JSON-RPC 2.0 response envelope. Exactly one of
// Result and Error is set after a successful Decode.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ResultValue unmarshals the result member into a generic value. Returns nil
// when the response carried an error instead of a result.
func (r *Response) ResultValue() (any, error) {
	if r.Result == nil {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(r.Result, &v); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return v, nil
}
