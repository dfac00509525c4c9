package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// BundleParser deserializes a bundle file back into structured data.
type BundleParser interface {
	Parse(data []byte) (*Bundle, error)
}

// ParserFor picks a parser from the file content: Markdown bundles carry the
// version sentinel, everything else is treated as JSON.
func ParserFor(data []byte) BundleParser {
	if strings.Contains(string(data), versionSentinel) {
		return &MarkdownParser{}
	}
	return &JSONParser{}
}

// JSONParser parses a JSON-encoded Bundle.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse JSON bundle: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("invalid JSON bundle: %w", err)
	}
	return &b, nil
}

// MarkdownParser parses a Markdown-rendered Bundle by extracting the
// embedded base64 JSON payload from the sentinel comments.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Bundle, error) {
	content := string(data)

	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a valid codecast bundle: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid codecast bundle: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], commentSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid codecast bundle: malformed data payload")
	}
	encoded := content[start : start+end]

	jsonBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not a valid codecast bundle: corrupted base64 payload: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(jsonBytes, &b); err != nil {
		return nil, fmt.Errorf("not a valid codecast bundle: failed to parse embedded JSON: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("not a valid codecast bundle: %w", err)
	}
	return &b, nil
}
