// Package output renders command results as text, JSON or YAML.
//
// JSON and YAML wrap results in the Response envelope; text output is meant
// for people and renders records as tables and objects as aligned key/value
// lines. Field names always come from json tags so every format agrees.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how results are written.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// Formats lists the accepted format names.
var Formats = []string{string(Text), string(JSON), string(YAML)}

// ParseFormat parses a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON, YAML:
		return f, nil
	case "":
		return Text, nil
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(Formats, ", "))
}

// Structured reports whether f is a machine-readable envelope format.
func (f Format) Structured() bool {
	return f == JSON || f == YAML
}

// Response is the standard envelope for structured output.
type Response struct {
	OK       bool       `json:"ok"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Meta     *Meta      `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning represents a non-fatal warning.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains metadata about the response.
type Meta struct {
	Command    string `json:"command,omitempty"`
	Count      int    `json:"count,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Write writes a successful result. Structured formats wrap it in an envelope.
func Write(w io.Writer, f Format, data any, meta *Meta, warnings ...Warning) error {
	if f.Structured() {
		return WriteResponse(w, f, Response{OK: true, Data: data, Meta: meta, Warnings: warnings})
	}
	return WriteText(w, data, nil)
}

// WriteError writes a failure envelope. Text errors are rendered by the caller.
func WriteError(w io.Writer, f Format, info ErrorInfo) error {
	if f == YAML {
		return WriteResponse(w, YAML, Response{Error: &info})
	}
	return WriteResponse(w, JSON, Response{Error: &info})
}

// WriteResponse writes resp as indented JSON or as YAML.
func WriteResponse(w io.Writer, f Format, resp Response) error {
	if f == YAML {
		node, err := toNode(resp)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// toNode converts v to a YAML node through its JSON form, keeping json
// field names and struct field order.
func toNode(v any) (*yaml.Node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	blockStyle(doc.Content[0])
	return doc.Content[0], nil
}

// blockStyle clears the flow and quoting styles the JSON source left on n and
// its children. The encoder re-quotes strings that would not read back as
// strings.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
