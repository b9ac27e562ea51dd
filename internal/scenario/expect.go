package scenario

import (
	"fmt"
	"strings"

	"mcpdiag/internal/jsonrpc"
)

// Expectation is the declarative expected-shape predicate for one step. All
// configured checks must hold.
type Expectation struct {
	// Error expects the response to carry an error member instead of a
	// result.
	Error bool `yaml:"error,omitempty"`
	// ResultFields are dotted paths that must exist in the result,
	// e.g. "serverInfo.name".
	ResultFields []string `yaml:"resultFields,omitempty"`
	// ListFields are dotted paths that must exist and be JSON arrays. An
	// empty array satisfies the check; zero tools is not an error.
	ListFields []string `yaml:"listFields,omitempty"`
	// ElementFields maps a list path to fields every element must carry,
	// e.g. tools: [name, description].
	ElementFields map[string][]string `yaml:"elementFields,omitempty"`
	// Contains are substrings the serialized result must contain.
	Contains []string `yaml:"contains,omitempty"`
}

// ExpectationError reports a response whose shape does not match the step's
// predicate.
type ExpectationError struct {
	Detail string
}

func (e *ExpectationError) Error() string {
	return "expectation failed: " + e.Detail
}

// Check applies the predicate to a decoded response.
func (e Expectation) Check(resp *jsonrpc.Response) error {
	if e.Error {
		if resp.Error == nil {
			return &ExpectationError{Detail: "expected an error response, got a result"}
		}
		return nil
	}
	if resp.Error != nil {
		return &ExpectationError{Detail: fmt.Sprintf("expected a result, got error: %v", resp.Error)}
	}

	result, err := resp.ResultValue()
	if err != nil {
		return &ExpectationError{Detail: err.Error()}
	}

	for _, path := range e.ResultFields {
		if _, ok := lookupPath(result, path); !ok {
			return &ExpectationError{Detail: fmt.Sprintf("result.%s missing", path)}
		}
	}

	for _, path := range e.ListFields {
		v, ok := lookupPath(result, path)
		if !ok {
			return &ExpectationError{Detail: fmt.Sprintf("result.%s missing", path)}
		}
		if _, ok := v.([]any); !ok {
			return &ExpectationError{Detail: fmt.Sprintf("result.%s is %T, want a list", path, v)}
		}
	}

	for path, fields := range e.ElementFields {
		v, ok := lookupPath(result, path)
		if !ok {
			return &ExpectationError{Detail: fmt.Sprintf("result.%s missing", path)}
		}
		list, ok := v.([]any)
		if !ok {
			return &ExpectationError{Detail: fmt.Sprintf("result.%s is %T, want a list", path, v)}
		}
		for i, elem := range list {
			for _, field := range fields {
				if _, ok := lookupPath(elem, field); !ok {
					return &ExpectationError{Detail: fmt.Sprintf("result.%s[%d].%s missing", path, i, field)}
				}
			}
		}
	}

	if len(e.Contains) > 0 {
		serialized := string(resp.Result)
		for _, want := range e.Contains {
			if !strings.Contains(serialized, want) {
				return &ExpectationError{Detail: fmt.Sprintf("result does not contain %q", want)}
			}
		}
	}

	return nil
}

// lookupPath walks a dotted path through nested JSON objects.
func lookupPath(v any, dotted string) (any, bool) {
	current := v
	for _, part := range strings.Split(dotted, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// expandParams deep-copies a params object, replacing "${key}" references in
// string values with captured context values.
func expandParams(params map[string]any, captures map[string]string) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = expandValue(v, captures)
	}
	return out
}

func expandValue(v any, captures map[string]string) any {
	switch tv := v.(type) {
	case string:
		result := tv
		for key, val := range captures {
			result = strings.ReplaceAll(result, "${"+key+"}", val)
		}
		return result
	case map[string]any:
		return expandParams(tv, captures)
	case []any:
		out := make([]any, len(tv))
		for i, elem := range tv {
			out[i] = expandValue(elem, captures)
		}
		return out
	default:
		return v
	}
}
