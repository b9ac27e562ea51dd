package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mcpdiag/internal/jsonrpc"
	"mcpdiag/internal/transport"
	"mcpdiag/pkg/logging"
)

const receiveChunkSize = 4096

// Runner executes scenarios against a fixed transport. One outstanding
// request per connection, no pipelining: the correlation id of each step is
// checked against exactly one expected value.
type Runner struct {
	transport   transport.Transport
	stepTimeout time.Duration
}

// NewRunner builds a runner. stepTimeout bounds each exchange unless a step
// overrides it.
func NewRunner(tr transport.Transport, stepTimeout time.Duration) *Runner {
	if stepTimeout <= 0 {
		stepTimeout = 10 * time.Second
	}
	return &Runner{transport: tr, stepTimeout: stepTimeout}
}

// Run drives one scenario through the Idle -> Connecting -> Running ->
// Completed/Aborted lifecycle. A connect failure aborts with no steps
// attempted; step failures are recorded and the runner advances to the next
// step on the same connection. The connection is closed on every exit path.
func (r *Runner) Run(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	result := Result{Name: sc.Name, State: StateConnecting}
	logging.Debug("scenario", "%s: connecting to %s", sc.Name, r.transport.Target())

	conn, err := r.transport.Open(ctx)
	if err != nil {
		result.State = StateAborted
		result.Diagnostic = fmt.Sprintf("connect failed (%s): %v", transport.Classify(err), err)
		result.Duration = time.Since(start)
		logging.Warn("scenario", "%s: %s", sc.Name, result.Diagnostic)
		return result
	}
	defer conn.Close()

	result.State = StateRunning
	captures := make(map[string]string)
	passed := true

	for i, step := range sc.Steps {
		stepResult := r.runStep(ctx, conn, int64(i+1), step, captures)
		result.Steps = append(result.Steps, stepResult)
		if stepResult.Outcome != StepPassed {
			passed = false
			logging.Debug("scenario", "%s: step %q %s (%s): %s",
				sc.Name, step.Name, stepResult.Outcome, stepResult.Kind, stepResult.Diagnostic)
		}
	}

	result.State = StateCompleted
	result.Passed = passed
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) runStep(ctx context.Context, conn transport.Conn, id int64, step Step, captures map[string]string) StepResult {
	start := time.Now()
	result := StepResult{Name: step.Name, Method: step.Method}
	defer func() { result.Duration = time.Since(start) }()

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = r.stepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var params any
	if step.Params != nil {
		params = expandParams(step.Params, captures)
	}
	frame, err := jsonrpc.Encode(jsonrpc.NewRequest(id, step.Method, params))
	if err != nil {
		result.Outcome = StepError
		result.Kind = FailProtocol
		result.Diagnostic = err.Error()
		return result
	}

	if err := conn.Send(stepCtx, frame); err != nil {
		result.Outcome = StepError
		result.Kind = FailTransport
		result.Diagnostic = fmt.Sprintf("send failed (%s): %v", transport.Classify(err), err)
		return result
	}

	raw, kind, err := receiveFrame(stepCtx, conn)
	if err != nil {
		result.Outcome = StepError
		result.Kind = kind
		result.Diagnostic = err.Error()
		return result
	}
	result.Response = raw

	resp, err := jsonrpc.Decode(raw, id)
	if err != nil {
		result.Outcome = StepError
		result.Kind = FailProtocol
		result.Diagnostic = err.Error()
		return result
	}

	if err := step.Expect.Check(resp); err != nil {
		result.Outcome = StepFailed
		result.Kind = FailExpectation
		result.Diagnostic = err.Error()
		return result
	}

	if err := capture(resp, step.Capture, captures); err != nil {
		result.Outcome = StepFailed
		result.Kind = FailExpectation
		result.Diagnostic = err.Error()
		return result
	}

	result.Outcome = StepPassed
	return result
}

// receiveFrame loops Receive until a complete frame is assembled or the step
// deadline elapses. Zero bytes received is reported as FailEmptyResponse,
// never as a decode failure; partial bytes followed by the deadline is
// FailTimeout.
func receiveFrame(ctx context.Context, conn transport.Conn) ([]byte, FailureKind, error) {
	var fr jsonrpc.FrameReader
	received := 0
	for {
		frame, err := fr.Next()
		if err == nil {
			return frame, "", nil
		}
		if !errors.Is(err, jsonrpc.ErrIncompleteFrame) {
			return nil, FailProtocol, err
		}

		data, rerr := conn.Receive(ctx, receiveChunkSize)
		if len(data) > 0 {
			received += len(data)
			fr.Feed(data)
			continue
		}
		if rerr == nil {
			continue
		}

		kind := transport.Classify(rerr)
		if received == 0 {
			// The server accepted the request and said nothing at all.
			return nil, FailEmptyResponse, fmt.Errorf("no response bytes before %s", kind)
		}
		if kind == transport.FailureTimeout {
			return nil, FailTimeout, fmt.Errorf("incomplete frame after %d byte(s): %w", received, rerr)
		}
		return nil, FailTransport, fmt.Errorf("receive failed after %d byte(s) (%s): %w", received, kind, rerr)
	}
}

// capture copies values out of a passing response into the scenario context.
func capture(resp *jsonrpc.Response, spec map[string]string, captures map[string]string) error {
	if len(spec) == 0 {
		return nil
	}
	result, err := resp.ResultValue()
	if err != nil {
		return &ExpectationError{Detail: err.Error()}
	}
	for key, path := range spec {
		v, ok := lookupPath(result, path)
		if !ok {
			return &ExpectationError{Detail: fmt.Sprintf("capture %s: result.%s missing", key, path)}
		}
		captures[key] = fmt.Sprint(v)
	}
	return nil
}
