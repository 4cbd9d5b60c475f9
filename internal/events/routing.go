package events

import (
	"fmt"
	"strings"
)

// Routing key prefixes, one fixed literal per event source.
const (
	PrefixChannel     = "stasis.channel"
	PrefixApplication = "stasis.app"
	PrefixAMI         = "ami"
)

// RoutingKey builds the hierarchical "<prefix>.<suffix>" key used to
// direct a published message. The suffix is case-folded with a plain
// ASCII fold; an empty suffix is a construction error and the event must
// be dropped by the caller.
func RoutingKey(prefix, suffix string) (string, error) {
	if suffix == "" {
		return "", fmt.Errorf("routing key: empty suffix for prefix %q", prefix)
	}
	return prefix + "." + asciiLower(suffix), nil
}

// asciiLower folds A-Z only; routing keys must not depend on locale.
func asciiLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
