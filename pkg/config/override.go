package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ApplyOverrides walks a parsed YAML document and applies dotted-path
// "key.path=value" overrides in order (spec.md §6: command-line
// overrides win over file values). Each path must already exist in
// the document — an override introducing a brand-new key fails loudly
// rather than silently creating one, since a typo'd path would
// otherwise be a silent no-op.
func ApplyOverrides(doc *yaml.Node, overrides []string) error {
	for _, o := range overrides {
		path, val, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("override %q: expected key.path=value", o)
		}
		if err := setPath(doc, strings.Split(path, "."), val); err != nil {
			return fmt.Errorf("override %q: %w", o, err)
		}
	}
	return nil
}

func setPath(doc *yaml.Node, segments []string, val string) error {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return fmt.Errorf("empty document")
		}
		return setPath(doc.Content[0], segments, val)
	}

	if doc.Kind != yaml.MappingNode {
		return fmt.Errorf("not a mapping node")
	}

	head := segments[0]
	index, isIndex := arrayIndex(head)

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		value := doc.Content[i+1]
		if key.Value != stripIndex(head) {
			continue
		}

		if isIndex {
			if value.Kind != yaml.SequenceNode || index >= len(value.Content) {
				return fmt.Errorf("path %q: index out of range", head)
			}
			value = value.Content[index]
		}

		if len(segments) == 1 {
			setScalar(value, val)
			return nil
		}
		return setPath(value, segments[1:], val)
	}

	return fmt.Errorf("unknown path %q", head)
}

func setScalar(node *yaml.Node, val string) {
	node.Kind = yaml.ScalarNode
	node.Tag = ""
	node.Value = val
	if _, ok := parseIntOverride(val); ok {
		node.Tag = "!!int"
	}
}

// arrayIndex parses the numeric index out of a "scenarios[2]"-style
// segment; stripIndex returns the bare name.
func arrayIndex(segment string) (int, bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 || !strings.HasSuffix(segment, "]") {
		return 0, false
	}
	n, err := strconv.Atoi(segment[open+1 : len(segment)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func stripIndex(segment string) string {
	if i := strings.IndexByte(segment, '['); i >= 0 {
		return segment[:i]
	}
	return segment
}
