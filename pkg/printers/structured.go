package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how a command renders its result.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", Text:
		return Text, nil
	case JSON, YAML:
		return f, nil
	}
	return Text, fmt.Errorf("printers: unknown output format %q", raw)
}

// Structured writes v as JSON or YAML. Text is not structured and is an error.
func Structured(w io.Writer, f Format, v interface{}) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("printers: %q is not a structured format", f)
}

// Structured reports whether f is JSON or YAML.
func (f Format) Structured() bool {
	return f == JSON || f == YAML
}
