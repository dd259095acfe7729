package syntax

import "strings"

// KeyValue splits a `key=value` config line. Section headers and comments
// report false.
func KeyValue(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), TrimValue(value), true
}

// TrimValue trims whitespace and one layer of single or double quotes.
func TrimValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return strings.Trim(v, `'`)
}

// FindValue returns the value of the first `key=value` line in text,
// regardless of section.
func FindValue(text, key string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		k, v, ok := KeyValue(line)
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}

// IsSectionHeader reports whether line opens a new `[section]`.
func IsSectionHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "[")
}

// ReplaceValue rewrites the value of a `key=value` line through mapping,
// preserving the original quoting. Returns false when key does not match
// or the value is not mapped.
func ReplaceValue(line, key string, mapping map[string]string) (string, bool) {
	k, v, ok := KeyValue(line)
	if !ok || k != key {
		return line, false
	}
	repl, ok := mapping[v]
	if !ok {
		return line, false
	}
	idx := strings.LastIndex(line, v)
	if idx < 0 {
		return line, false
	}
	return line[:idx] + repl + line[idx+len(v):], true
}
