package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// LoadFile reads and parses a plugin configuration file (YAML or JSON).
func LoadFile(path string) (Plugin, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Plugin{}, err
	}
	nodes, err := DecodeNodes(b)
	if err != nil {
		return Plugin{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := Parse(nodes)
	if err != nil {
		return Plugin{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeNodes turns a top-level YAML mapping into an ordered node list.
//
// We go through yaml.Node rather than a map so that key order and repeated
// keys survive. Scalars become one value, sequences of scalars become a value
// list, null becomes no values. An empty document yields no nodes.
func DecodeNodes(data []byte) ([]Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	// reject trailing documents
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("invalid config: more than one document")
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}

	root := &doc
	if root.Kind == 0 {
		return nil, nil
	}
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid config: line %d: expected a mapping of keys", root.Line)
	}

	nodes := make([]Node, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		values, err := scalarValues(v)
		if err != nil {
			return nil, fmt.Errorf("invalid config: key %q: %w", k.Value, err)
		}
		nodes = append(nodes, Node{Key: k.Value, Values: values})
	}
	return nodes, nil
}

func scalarValues(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: nested values are not supported", c.Line)
			}
			out = append(out, c.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: nested values are not supported", n.Line)
	}
}
