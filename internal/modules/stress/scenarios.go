package stress

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a YAML document of the form
//
//	scenarios:
//	  - name: tech-selloff
//	    shocks: {AAPL: -0.2, MSFT: -0.15}
func LoadScenarios(r io.Reader) ([]Scenario, error) {
	const op = "stress.LoadScenarios"
	var f scenarioFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.DataError(op, "empty scenario file")
		}
		return nil, domain.DataError(op, "decode scenarios: %v", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, domain.DataError(op, "no scenarios defined")
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		if sc.Name == "" {
			return nil, domain.DataError(op, "scenario %d has no name", i)
		}
		if seen[sc.Name] {
			return nil, domain.DataError(op, "duplicate scenario %q", sc.Name)
		}
		seen[sc.Name] = true
		if len(sc.Shocks) == 0 {
			return nil, domain.DataError(op, "scenario %q has no shocks", sc.Name)
		}
	}
	return f.Scenarios, nil
}
