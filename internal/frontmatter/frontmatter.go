// Package frontmatter splits content files into an ordered metadata block and
// a Markdown body. Two parsing modes are supported: strict, where the block
// must open the file, and lenient, where a missing block yields empty
// metadata.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when the metadata block decodes to something
// other than a key/value mapping.
var ErrNotMapping = errors.New("frontmatter: metadata block must be a mapping")

// FrontMatter is an ordered key/value mapping. Keys keep the order in which
// they appear in the source so that encoding reproduces the original layout.
// The zero value is an empty mapping ready to use.
type FrontMatter struct {
	keys   []string
	values map[string]any
}

// New builds a FrontMatter from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...any) FrontMatter {
	var fm FrontMatter
	for i := 0; i+1 < len(pairs); i += 2 {
		fm.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return fm
}

// Set stores value under key. Existing keys keep their position.
func (fm *FrontMatter) Set(key string, value any) {
	if fm.values == nil {
		fm.values = map[string]any{}
	}
	if _, exists := fm.values[key]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = value
}

// Get returns the raw value stored under key.
func (fm FrontMatter) Get(key string) (any, bool) {
	value, ok := fm.values[key]
	return value, ok
}

// Has reports whether key is present, even with a null value.
func (fm FrontMatter) Has(key string) bool {
	_, ok := fm.values[key]
	return ok
}

// String returns the value under key as trimmed text. Scalars are formatted
// with fmt; nil and missing keys yield an empty string.
func (fm FrontMatter) String(key string) string {
	value, ok := fm.values[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	switch value.(type) {
	case map[string]any, []any:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// Keys returns the keys in source order.
func (fm FrontMatter) Keys() []string {
	return slices.Clone(fm.keys)
}

// Len reports the number of keys.
func (fm FrontMatter) Len() int {
	return len(fm.keys)
}

// Map returns a shallow copy of the values keyed by name.
func (fm FrontMatter) Map() map[string]any {
	if len(fm.values) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fm.values)
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving key order.
func (fm *FrontMatter) UnmarshalYAML(node *yaml.Node) error {
	for node.Kind == yaml.DocumentNode || node.Kind == yaml.AliasNode {
		if node.Kind == yaml.AliasNode {
			node = node.Alias
			continue
		}
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}

	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w (line %d)", ErrNotMapping, node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return fmt.Errorf("frontmatter: decode %q: %w", keyNode.Value, err)
		}
		fm.Set(keyNode.Value, value)
	}
	return nil
}

// Encode renders the mapping back to YAML with keys in source order.
func (fm FrontMatter) Encode() ([]byte, error) {
	if len(fm.keys) == 0 {
		return nil, nil
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range fm.keys {
		keyNode := &yaml.Node{}
		keyNode.SetString(key)

		valueNode := &yaml.Node{}
		if err := valueNode.Encode(fm.values[key]); err != nil {
			return nil, fmt.Errorf("frontmatter: encode %q: %w", key, err)
		}
		root.Content = append(root.Content, keyNode, valueNode)
	}
	return yaml.Marshal(root)
}

// Compose writes fm as a delimited block followed by body.
func Compose(fm FrontMatter, body []byte) ([]byte, error) {
	encoded, err := fm.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(encoded)
	buf.WriteString(delimiter + "\n")
	if len(body) > 0 {
		buf.WriteString("\n")
		buf.Write(body)
	}
	return buf.Bytes(), nil
}
