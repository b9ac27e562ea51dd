// Package scenario drives named, ordered sequences of JSON-RPC exchanges
// against one connection and records per-step outcomes. The runner is
// deliberately exploratory: a failed step is recorded and the next step
// still runs on the same connection, so one broken method does not hide the
// state of the others.
package scenario

import (
	"encoding/json"
	"time"
)

// Step is a single request/response exchange within a scenario.
type Step struct {
	// Name is the human label for the step.
	Name string `yaml:"name"`
	// Method is the JSON-RPC method to invoke.
	Method string `yaml:"method"`
	// Params is the request params object. String values may reference
	// earlier captures as "${key}". A nil map encodes as {}.
	Params map[string]any `yaml:"params,omitempty"`
	// Timeout overrides the runner's step timeout when positive.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Expect is the expected-shape predicate applied to the response.
	Expect Expectation `yaml:"expect,omitempty"`
	// Capture stores result values (by dotted path) into the scenario
	// context for later steps, e.g. serverName: serverInfo.name.
	Capture map[string]string `yaml:"capture,omitempty"`
}

// Scenario is an ordered, named sequence of steps exercised against one
// connection. A scenario with no steps passes iff the connection opens.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// State is the runner's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRunning    State = "running"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

// StepOutcome is the per-step verdict.
type StepOutcome string

const (
	// StepPassed: response arrived, envelope valid, predicate satisfied.
	StepPassed StepOutcome = "PASSED"
	// StepFailed: envelope valid but the expected-shape predicate failed.
	StepFailed StepOutcome = "FAILED"
	// StepError: no usable response (transport, protocol, or timeout).
	StepError StepOutcome = "ERROR"
)

// FailureKind classifies why a step did not pass.
type FailureKind string

const (
	// FailExpectation: the response shape did not match the predicate.
	FailExpectation FailureKind = "expectation"
	// FailProtocol: the envelope violated JSON-RPC 2.0 (malformed JSON,
	// missing members, ambiguous result/error, id mismatch).
	FailProtocol FailureKind = "protocol"
	// FailEmptyResponse: the exchange produced zero bytes. Kept distinct
	// from a decode failure; it usually means the server is busy, not
	// broken.
	FailEmptyResponse FailureKind = "empty-response"
	// FailTimeout: bytes arrived but never formed a complete frame before
	// the step deadline.
	FailTimeout FailureKind = "timeout"
	// FailTransport: the send or receive itself failed.
	FailTransport FailureKind = "transport"
)

// StepResult is the recorded outcome of one step.
type StepResult struct {
	Name       string          `json:"name"`
	Method     string          `json:"method"`
	Outcome    StepOutcome     `json:"outcome"`
	Kind       FailureKind     `json:"kind,omitempty"`
	Diagnostic string          `json:"diagnostic,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// Result is the recorded outcome of one scenario run.
type Result struct {
	Name string `json:"name"`
	// State is the terminal state, StateCompleted or StateAborted.
	State State `json:"state"`
	// Passed is true iff the scenario completed and every step passed.
	Passed bool `json:"passed"`
	// Diagnostic carries the connection-level failure on abort.
	Diagnostic string        `json:"diagnostic,omitempty"`
	Steps      []StepResult  `json:"steps"`
	Duration   time.Duration `json:"duration"`
}
