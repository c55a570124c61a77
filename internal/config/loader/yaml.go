package loader

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

var errNotMapping = errors.New("top-level value must be a mapping")

// yamlCodec decodes to maps for reading and edits the node tree for
// writes, which keeps key order and comments.
type yamlCodec struct{}

func (yamlCodec) decode(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return make(map[string]any), nil
	}

	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return make(map[string]any), nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errNotMapping
	}
	return m, nil
}

func (yamlCodec) order(raw []byte, path []string) ([]string, error) {
	root, err := parseYAMLRoot(raw)
	if err != nil {
		return nil, err
	}

	node := root
	for _, key := range path {
		node = yamlChild(node, key)
		if node == nil {
			return nil, nil
		}
	}
	if node.Kind != yaml.MappingNode {
		return nil, nil
	}

	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys, nil
}

func (yamlCodec) set(raw []byte, path []string, value any) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	root, err := parseYAMLRoot(raw)
	if err != nil {
		return nil, err
	}

	node := root
	for _, key := range path[:len(path)-1] {
		child := yamlChild(node, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content, yamlKey(key), child)
		}
		if child.Kind != yaml.MappingNode {
			return nil, errNotMapping
		}
		node = child
	}

	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return nil, err
	}

	last := path[len(path)-1]
	if existing := yamlChild(node, last); existing != nil {
		*existing = encoded
	} else {
		node.Content = append(node.Content, yamlKey(last), &encoded)
	}
	return encodeYAML(root)
}

func (yamlCodec) delete(raw []byte, path []string) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	root, err := parseYAMLRoot(raw)
	if err != nil {
		return nil, err
	}

	node := root
	for _, key := range path[:len(path)-1] {
		node = yamlChild(node, key)
		if node == nil || node.Kind != yaml.MappingNode {
			return raw, nil
		}
	}

	last := path[len(path)-1]
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == last {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			break
		}
	}
	return encodeYAML(root)
}

// parseYAMLRoot returns the top-level mapping node, creating one for an
// empty document.
func parseYAMLRoot(raw []byte) (*yaml.Node, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}
	return root, nil
}

func yamlChild(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func yamlKey(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func encodeYAML(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
