package events

import "strings"

// ParseManagerFields parses the flat "Key: Value" block of a manager
// event into a document. Lines are separated by CR or LF; the key ends at
// the first colon. A malformed line is skipped without failing the whole
// event.
func ParseManagerFields(fields string) map[string]any {
	doc := make(map[string]any)

	lines := strings.FieldsFunc(fields, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		doc[key] = strings.TrimSpace(value)
	}

	return doc
}
