package fhir

import (
	"strconv"
	"strings"
)

// Lookup walks the payload along path. Map values are entered by key, list
// values by decimal index ("name", "0", "given").
func (r Resource) Lookup(path ...string) (any, bool) {
	var cur any = r.Payload
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns the string at path, or "" when absent or not a string.
func (r Resource) String(path ...string) string {
	return r.StringOr("", path...)
}

// StringOr returns the string at path, or def when absent, empty or not a string.
func (r Resource) StringOr(def string, path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// List returns the list at path, or nil.
func (r Resource) List(path ...string) []any {
	v, ok := r.Lookup(path...)
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

// Reference reads "<path>.reference", the FHIR Reference shape.
func (r Resource) Reference(path ...string) string {
	return r.String(append(path, "reference")...)
}

// Extension returns the valueString (or valueCode) of the first extension with url.
func (r Resource) Extension(url string) string {
	for _, raw := range r.List("extension") {
		ext, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if u, _ := ext["url"].(string); u != url {
			continue
		}
		for _, key := range []string{"valueString", "valueCode"} {
			if s, ok := ext[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// displayName renders name[0] as text, or as "prefix given family".
func (r Resource) displayName() string {
	if text := r.String("name", "0", "text"); text != "" {
		return text
	}

	var parts []string
	for _, key := range []string{"prefix", "given"} {
		for _, raw := range r.List("name", "0", key) {
			if s, ok := raw.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
	}
	if family := r.String("name", "0", "family"); family != "" {
		parts = append(parts, family)
	}
	return strings.Join(parts, " ")
}

// telecom returns the first telecom value of the given system.
func (r Resource) telecom(system string) string {
	for _, raw := range r.List("telecom") {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if s, _ := t["system"].(string); s != system {
			continue
		}
		if v, _ := t["value"].(string); v != "" {
			return v
		}
	}
	return ""
}

// DatePart returns the calendar-date prefix of an ISO-8601 timestamp.
func DatePart(ts string) string {
	if date, _, found := strings.Cut(ts, "T"); found {
		return date
	}
	return ts
}
