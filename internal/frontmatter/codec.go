// Package frontmatter implements the metadata codec for document files:
// an optional YAML block delimited by "---" marker lines, followed by the
// markdown body. Parsing is total (malformed input degrades to an empty
// metadata map) and Stringify is its inverse for YAML-expressible values.
package frontmatter

import (
	"bytes"
	"fmt"
	"sort"

	adrg "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// reservedOrder fixes the serialization order of recognized keys so repeated
// stringify cycles are byte-stable. Keys not listed here are emitted after,
// sorted lexicographically.
var reservedOrder = []string{
	"id",
	"title",
	"title_mode",
	"layout",
	"status",
	"published",
	"date",
	"permalink",
	"tags",
	"created_at",
	"updated_at",
	"published_at",
}

var reservedRank = func() map[string]int {
	ranks := make(map[string]int, len(reservedOrder))
	for i, key := range reservedOrder {
		ranks[key] = i
	}
	return ranks
}()

// Parse splits raw file content into its metadata map and body. A missing or
// malformed metadata block yields an empty map and body identical to raw;
// Parse never fails.
func Parse(raw []byte) (map[string]any, []byte) {
	meta := map[string]any{}

	rest, err := adrg.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		return map[string]any{}, raw
	}
	if meta == nil {
		meta = map[string]any{}
	}
	for key, value := range meta {
		meta[key] = normalize(value)
	}
	return meta, rest
}

// normalize rewrites the map[interface{}]interface{} values the underlying
// YAML decoder produces for nested mappings into map[string]any, recursively.
// Without this, nested metadata would not survive a parse/stringify cycle and
// would not be JSON-expressible for schema validation.
func normalize(value any) any {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[toString(key)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return value
	}
}

func toString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", key)
}

// Stringify renders body with a leading metadata block. An empty metadata map
// produces the body unchanged. Parse(Stringify(body, meta)) reconstructs both
// arguments exactly for values YAML can express.
func Stringify(body []byte, meta map[string]any) ([]byte, error) {
	if len(meta) == 0 {
		return body, nil
	}

	doc, err := orderedNode(meta)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteByte('\n')

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes(), nil
}

// orderedNode builds a YAML mapping with reserved keys first in canonical
// order and custom keys sorted, keeping output deterministic across runs.
func orderedNode(meta map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iOK := reservedRank[keys[i]]
		rj, jOK := reservedRank[keys[j]]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(meta[key]); err != nil {
			return nil, err
		}
		mapping.Content = append(mapping.Content, keyNode, valNode)
	}
	return mapping, nil
}
