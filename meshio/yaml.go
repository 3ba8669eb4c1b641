package meshio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"hullbridge/vhacd"
)

// HullSet is the YAML document written for a decomposition.
type HullSet struct {
	Source  string              `yaml:"source,omitempty"`
	Outcome string              `yaml:"outcome"`
	Hulls   []*vhacd.ConvexHull `yaml:"hulls"`
}

// WriteYAML encodes set with two-space indentation.
func WriteYAML(w io.Writer, set HullSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode hulls: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a document written by WriteYAML.
func ReadYAML(r io.Reader) (HullSet, error) {
	var set HullSet
	if err := yaml.NewDecoder(r).Decode(&set); err != nil {
		return HullSet{}, fmt.Errorf("decode hulls: %w", err)
	}
	return set, nil
}

// ParseParameters decodes a YAML parameter document over
// vhacd.DefaultParameters and validates the result. Unknown keys are
// rejected.
func ParseParameters(data []byte) (vhacd.Parameters, error) {
	p := vhacd.DefaultParameters()
	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return vhacd.Parameters{}, fmt.Errorf("parse parameters: %w", err)
		}
	}
	if err := vhacd.ValidateParameters(p); err != nil {
		return vhacd.Parameters{}, err
	}
	return p, nil
}

// LoadParameters reads a parameter file. An empty path yields the defaults.
func LoadParameters(path string) (vhacd.Parameters, error) {
	if path == "" {
		return vhacd.DefaultParameters(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vhacd.Parameters{}, fmt.Errorf("read parameters: %w", err)
	}
	return ParseParameters(data)
}
