package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject returns the first complete, valid JSON object in a model
// response. It tolerates markdown fences and prose around the object,
// including stray braces in the prose before it.
func ExtractJSONObject(response string) ([]byte, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response (missing '{')")
	}

	var firstErr error
	for start != -1 {
		end := matchBrace(response, start)
		if end == -1 {
			if firstErr == nil {
				firstErr = fmt.Errorf("unterminated JSON object in response")
			}
		} else {
			raw := []byte(response[start : end+1])
			if json.Valid(raw) {
				return raw, nil
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("invalid JSON object in response: %s", raw)
			}
		}

		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil, firstErr
}

// matchBrace returns the index of the '}' closing the '{' at start, skipping
// braces inside string literals, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
