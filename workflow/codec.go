package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Format selects the encoding of a workflow document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension; YAML unless ".json".
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Marshal encodes a workflow.
func Marshal(w *Workflow, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("workflow: encoding json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(w); err != nil {
			return nil, fmt.Errorf("workflow: encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("workflow: encoding yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("workflow: unknown format %q", format)
	}
}

// Unmarshal decodes a workflow from YAML or JSON.
func Unmarshal(data []byte) (*Workflow, error) {
	var w Workflow
	// JSON is a subset of YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("workflow: decoding: %w", err)
	}
	if w.Kind != Kind {
		return nil, fmt.Errorf("workflow: unexpected kind %q", w.Kind)
	}
	return &w, nil
}

// ReadFile loads a workflow document from disk.
func ReadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return w, nil
}

// WriteFile stores a workflow document, encoded by the file extension.
func WriteFile(path string, w *Workflow) error {
	return WriteFileAs(path, w, FormatFromPath(path))
}

// WriteFileAs stores a workflow document in the given format whatever the
// file extension.
func WriteFileAs(path string, w *Workflow, format Format) error {
	data, err := Marshal(w, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workflow: creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
