package dictionary

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// FileFormat represents different dictionary source formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatJSON               // JSON object, keys are the words
	FormatText               // one word per line
)

func (f FileFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// DetectFormat picks a format from the source name, falling back to sniffing the payload.
func DetectFormat(name string, data []byte) FileFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatText
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	if trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatText
}

// Parse decodes data in the given format into words, in source order.
func Parse(format FileFormat, data []byte) ([]string, error) {
	switch format {
	case FormatJSON:
		return parseJSONKeys(data)
	case FormatText:
		return parseText(data)
	default:
		return nil, fmt.Errorf("unable to detect dictionary format")
	}
}

// parseJSONKeys reads the keys of a top-level JSON object, preserving their order.
// Values are skipped whatever their type.
func parseJSONKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("dictionary must be a JSON object, got %v", tok)
	}

	var words []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected dictionary key %v", keyTok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("failed to read value for %q: %w", key, err)
		}
		words = append(words, key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("unterminated dictionary object: %w", err)
	}
	return words, nil
}

func parseText(data []byte) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary line %d: %w", len(words)+1, err)
	}
	return words, nil
}
