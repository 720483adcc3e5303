package schemas

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Generative providers regularly wrap JSON in markdown fences, prepend
// commentary or leave raw control characters inside string values.
// Helpers below normalize such text so the decoding strategies can retry.

const maxBalancedCandidates = 32

// stripCodeFences extracts the content of the first markdown code block.
// Handles both ``` and ```json openings. Returns the input unchanged when
// no complete fenced block is found.
func stripCodeFences(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	rest := s[start+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return s
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// outerSlice returns the substring between the first occurrence of open and
// the last occurrence of close. ok is false when the pair is absent or inverted.
func outerSlice(s string, open, close byte) (string, bool) {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// scanBalancedObjects walks the text and collects brace-balanced {...}
// candidates at every nesting depth, inner objects before the outer one
// that contains them. The scan is string-aware: braces inside JSON string
// values do not affect the depth. Candidate count is capped to keep
// pathological inputs cheap.
func scanBalancedObjects(s string) []string {
	var candidates []string
	var starts []int
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
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
			starts = append(starts, i)
		case '}':
			if len(starts) == 0 {
				continue
			}
			start := starts[len(starts)-1]
			starts = starts[:len(starts)-1]
			candidates = append(candidates, s[start:i+1])
			if len(candidates) >= maxBalancedCandidates {
				return candidates
			}
		}
	}
	return candidates
}

// stripControlChars removes raw control characters (< 0x20) that providers
// sometimes leave inside string values, which makes encoding/json bail out.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

var whitespaceRunRe = regexp.MustCompile(`\s{2,}`)

// collapseWhitespace squashes every run of whitespace into a single space.
func collapseWhitespace(s string) string {
	return whitespaceRunRe.ReplaceAllString(s, " ")
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// removeTrailingCommas drops commas that directly precede a closing brace
// or bracket. Valid JSON strings never contain the `,\s*}` sequence, so the
// blanket replacement is safe enough for a recovery pass.
func removeTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// decodeJSONString turns the raw inner content of a JSON string literal
// (captured by regex without the surrounding quotes) into a Go string,
// resolving escape sequences.
func decodeJSONString(raw string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &out); err != nil {
		return raw
	}
	return out
}

// fieldStringRe builds a regex that captures the value of a string field.
func fieldStringRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + key + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// fieldIntRe builds a regex that captures the value of an integer field.
func fieldIntRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + key + `"\s*:\s*(\d+)`)
}
