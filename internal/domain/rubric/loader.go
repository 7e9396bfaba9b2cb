package rubric

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a rubric definition from a YAML file and validates it.
// The file shape mirrors the Rubric struct:
//
//	name: sound-logo
//	categories:
//	  - id: identity
//	    label: Fit with the movement's identity
//	    weight: 0.4
//	    criteria:
//	      - id: identity_fit
//	        prompt: Does the sound evoke the movement?
func LoadFile(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadRubric, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML rubric definition.
func Parse(data []byte) (*Rubric, error) {
	var r Rubric
	dec := yaml.Unmarshal(data, &r)
	if dec != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadRubric, dec)
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	return &r, nil
}
