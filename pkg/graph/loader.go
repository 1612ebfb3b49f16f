package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridianhealth/intake/pkg/domain"
)

// document is the on-disk shape of a graph definition.
type document struct {
	ID           string                  `json:"id" yaml:"id"`
	Name         string                  `json:"name" yaml:"name"`
	Version      string                  `json:"version" yaml:"version"`
	InitialState string                  `json:"initial_state" yaml:"initial_state"`
	Nodes        map[string]*domain.Node `json:"nodes" yaml:"nodes"`
}

// Load parses a graph document from raw bytes and validates it. JSON and
// YAML are both accepted; JSON is detected by the leading brace.
func Load(data []byte, opts ValidateOptions) (*Graph, error) {
	var doc document

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse graph document: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse graph document: %w", err)
		}
	}

	return build(&doc, opts)
}

// LoadFile reads and validates a graph document from disk.
func LoadFile(path string, opts ValidateOptions) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}
	return Load(data, opts)
}
