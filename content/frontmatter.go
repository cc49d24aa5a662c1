package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/asaidimu/go-maktaba/core/schema"
)

var fence = []byte("---")

// parseMarkdown splits a markdown file into YAML front matter and body.
// The front matter populates the document; the body becomes its "text"
// field. Files without a leading fence are all body.
func parseMarkdown(raw []byte) (schema.Document, error) {
	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return nil, err
	}

	doc := schema.Document{}
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &doc); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
	}
	if doc == nil {
		doc = schema.Document{}
	}
	doc["text"] = strings.TrimSpace(string(body))
	return doc, nil
}

// splitFrontMatter returns the bytes between an opening "---" line and the
// next "---" line, plus everything after as the body. An opening fence
// without a closing one is an error; no opening fence means no metadata.
func splitFrontMatter(raw []byte) (meta, body []byte, err error) {
	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 || !bytes.Equal(bytes.TrimRight(raw[:nl], "\r"), fence) {
		return nil, raw, nil
	}

	rest := raw[nl+1:]
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if lineEnd < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}
		if bytes.Equal(bytes.TrimRight(line, "\r"), fence) {
			return rest[:offset], rest[next:], nil
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return nil, nil, errors.New("front matter is not terminated")
}
