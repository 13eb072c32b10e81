// Package document reads and writes the frontmatter envelope of vault
// markdown files. Block markers live in the body and are handled by package
// blocks.
package document

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Header is the decoded frontmatter of a document plus the values derived from it.
type Header struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Tags        []string
}

// Split separates leading YAML frontmatter from the body. Files without a
// closed frontmatter section, or with invalid YAML, are all body.
func Split(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// Read decodes the frontmatter of data. The title falls back to the first H1
// heading and then to the file stem of name.
func Read(name string, data []byte) Header {
	fm, body := Split(data)
	h := Header{Frontmatter: fm, Body: body, Tags: stringList(fm["tags"])}
	if s, ok := fm["title"].(string); ok && s != "" {
		h.Title = s
	}
	if h.Title == "" {
		for _, line := range strings.Split(body, "\n") {
			if t := strings.TrimSpace(line); strings.HasPrefix(t, "# ") {
				h.Title = strings.TrimSpace(t[2:])
				break
			}
		}
	}
	if h.Title == "" && name != "" {
		h.Title = Stem(name)
	}
	return h
}

// Field is one frontmatter entry. Compose writes fields in slice order.
type Field struct {
	Key   string
	Value any
}

// Compose renders frontmatter fields followed by body.
func Compose(fields []Field, body string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		var v yaml.Node
		if err := v.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("document: encode %s: %w", f.Key, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}, &v)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(fields) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("document: encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("document: encode frontmatter: %w", err)
		}
	}
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Stem returns the base name of p without its extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
