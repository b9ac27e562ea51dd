package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// scenarioFile is the on-disk shape of a scenario definition file.
type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadFile reads additional scenario definitions from a YAML file. Loaded
// scenarios go through the same registry as the built-ins, so name clashes
// surface at startup instead of at run time.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %s defines no scenarios", path)
	}

	for _, sc := range file.Scenarios {
		if err := validate(sc); err != nil {
			return nil, fmt.Errorf("scenario file %s: %w", path, err)
		}
	}
	return file.Scenarios, nil
}

// UnmarshalYAML accepts timeouts in time.ParseDuration form ("2s", "500ms").
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type rawStep struct {
		Name    string            `yaml:"name"`
		Method  string            `yaml:"method"`
		Params  map[string]any    `yaml:"params"`
		Timeout string            `yaml:"timeout"`
		Expect  Expectation       `yaml:"expect"`
		Capture map[string]string `yaml:"capture"`
	}
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.Name = raw.Name
	s.Method = raw.Method
	s.Params = raw.Params
	s.Expect = raw.Expect
	s.Capture = raw.Capture
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("step %q: invalid timeout %q: %w", raw.Name, raw.Timeout, err)
		}
		s.Timeout = d
	}
	return nil
}

func validate(sc Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("scenario with empty name")
	}
	for i, step := range sc.Steps {
		if step.Method == "" {
			return fmt.Errorf("scenario %q step %d has no method", sc.Name, i+1)
		}
	}
	return nil
}
