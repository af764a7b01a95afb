package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule is one named rule with its opaque parameters. Parameters are decoded
// by the rule evaluator that understands them.
type Rule struct {
	Name   string
	Params json.RawMessage
}

// RuleSet keeps rules in the order they were written in the schema source
type RuleSet []Rule

// Get returns the parameters for a rule name
func (rs RuleSet) Get(name string) (json.RawMessage, bool) {
	for _, r := range rs {
		if r.Name == name {
			return r.Params, true
		}
	}
	return nil, false
}

// Names lists rule names in declared order
func (rs RuleSet) Names() []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name
	}
	return names
}

// UnmarshalJSON decodes a JSON object token by token so key order survives
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*rs = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("rules must be an object")
	}

	var out RuleSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("rule name must be a string")
		}
		var params json.RawMessage
		if err := dec.Decode(&params); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		out = append(out, Rule{Name: name, Params: params})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*rs = out
	return nil
}

// MarshalJSON writes the rules back as an object in declared order
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if len(r.Params) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(r.Params)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML walks the mapping node directly so key order survives.
// Each parameter block is re-encoded as JSON.
func (rs *RuleSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*rs = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rules must be a mapping", node.Line)
	}

	var out RuleSet
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var params any
		if err := valNode.Decode(&params); err != nil {
			return fmt.Errorf("rule %q: %w", keyNode.Value, err)
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("rule %q: %w", keyNode.Value, err)
		}
		out = append(out, Rule{Name: keyNode.Value, Params: raw})
	}

	*rs = out
	return nil
}
