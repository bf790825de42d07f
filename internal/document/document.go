// Package document splits workspace Markdown files into a metadata block and
// body text, and renders them back.
//
// A metadata block is present only when the first line of the file is the
// delimiter. Parsing is total: malformed blocks degrade to the line-based
// fallback or to empty metadata, never to an error.
package document

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "---"

// Metadata is the key/value header of a document. Values are scalars
// (string, Timestamp, int, float64, bool) or []any of scalars.
type Metadata map[string]any

// Timestamp is an unquoted YAML date or time kept as written, e.g.
// `created: 2024-01-15`. It renders back as the same plain scalar.
type Timestamp string

// MarshalYAML emits t as a plain scalar rather than a quoted string.
func (t Timestamp) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: string(t)}, nil
}

// Document is a parsed workspace file.
type Document struct {
	Metadata Metadata
	Body     string
}

// Parse separates the metadata block from the body. It never fails.
func Parse(raw []byte) Document {
	text := string(raw)
	block, body, ok := split(text)
	if !ok {
		return Document{Metadata: Metadata{}, Body: text}
	}
	return Document{
		Metadata: decode(block),
		Body:     strings.TrimSpace(body),
	}
}

// Serialize renders metadata and body into the on-disk format. Keys are
// written in sorted order; the delimiters are always emitted.
func Serialize(m Metadata, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	if len(m) > 0 {
		buf.Write(encode(m))
	}
	buf.WriteString(Delimiter + "\n")
	buf.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// MergeMetadata shallow-merges updates over the metadata of raw and
// re-renders it with the same body.
func MergeMetadata(raw []byte, updates Metadata) []byte {
	doc := Parse(raw)
	merged := doc.Metadata.Clone()
	for k, v := range updates {
		merged[k] = v
	}
	return Serialize(merged, doc.Body)
}

// split returns the text between the opening delimiter line and the next
// delimiter line, plus everything after it.
func split(text string) (block, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || !isDelimiter(first) {
		return "", "", false
	}
	offset := 0
	for {
		line, after, more := strings.Cut(rest[offset:], "\n")
		if isDelimiter(line) {
			return rest[:offset], after, true
		}
		if !more {
			return "", "", false
		}
		offset += len(line) + 1
	}
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == Delimiter
}

func decode(block string) Metadata {
	if strings.TrimSpace(block) == "" {
		return Metadata{}
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return scanLines(block)
	}
	if len(root.Content) == 0 {
		return Metadata{}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return scanLines(block)
	}

	m := make(Metadata, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		v, err := value(top.Content[i+1])
		if err != nil {
			return scanLines(block)
		}
		m[top.Content[i].Value] = v
	}
	return m
}

// value converts a decoded node to a metadata value. Timestamps keep their
// source text so re-rendering writes them back unchanged.
func value(n *yaml.Node) (any, error) {
	switch {
	case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp":
		return Timestamp(n.Value), nil
	case n.Kind == yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := value(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case n.Kind == yaml.AliasNode && n.Alias != nil:
		return value(n.Alias)
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// scanLines is the tolerant fallback for blocks that are not valid YAML:
// one "key: value" entry per line, anything else ignored.
func scanLines(block string) Metadata {
	m := Metadata{}
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		m[key] = scalar(strings.TrimSpace(strings.TrimRight(value, "\r")))
	}
	return m
}

func scalar(v string) any {
	if len(v) >= 2 && v[0] == '[' && v[len(v)-1] == ']' {
		items := []any{}
		for _, part := range strings.Split(v[1:len(v)-1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			items = append(items, unquote(part))
		}
		return items
	}
	return unquote(v)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func encode(m Metadata) []byte {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(map[string]any(m))
	if err == nil {
		err = enc.Close()
	}
	if err == nil {
		return buf.Bytes()
	}

	// Values yaml cannot encode are rendered with their default format.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&out, "%s: %v\n", k, m[k])
	}
	return out.Bytes()
}

// Clone returns a shallow copy of m. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value of key rendered as a string, or "" when absent.
func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case Timestamp:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the value of key as a string slice. A single scalar is
// returned as a one-element slice.
func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}
