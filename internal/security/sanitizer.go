package security

import (
	"fmt"
	"regexp"
	"sync"

	"streamtap/internal/config"
)

const maxPIIMappings = 1000

// Sanitizer replaces PII in text with stable placeholders such as [EMAIL_1].
// The same value maps to the same placeholder until maxPIIMappings distinct
// values have been seen, after which numbering starts over.
type Sanitizer struct {
	mu      sync.Mutex
	filters []piiFilter
	reverse map[string]string // original value → placeholder
	counter map[string]int
	enabled bool
}

type piiFilter struct {
	name    string
	pattern *regexp.Regexp
	prefix  string
}

// Specific patterns come first so a card number is not half-eaten as a phone.
var defaultFilters = []struct {
	name    string
	pattern string
	prefix  string
}{
	{"email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "EMAIL"},
	{"card", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`, "CARD"},
	{"ssn", `\b\d{3}-\d{2}-\d{4}\b`, "SSN"},
	{"ip", `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "IP"},
	{"phone", `(?:\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`, "PHONE"},
}

// NewSanitizer creates a PII sanitizer from config.
func NewSanitizer(cfg config.PIIFilterConfig) *Sanitizer {
	s := &Sanitizer{enabled: cfg.Enabled}
	s.resetLocked()

	enableMap := map[string]bool{
		"email": cfg.FilterEmails,
		"phone": cfg.FilterPhones,
		"card":  cfg.FilterCards,
		"ip":    cfg.FilterIPs,
		"ssn":   cfg.FilterSSN,
	}

	for _, f := range defaultFilters {
		if enableMap[f.name] {
			s.filters = append(s.filters, piiFilter{
				name:    f.name,
				pattern: regexp.MustCompile(f.pattern),
				prefix:  f.prefix,
			})
		}
	}

	return s
}

// Enabled reports whether Sanitize changes anything.
func (s *Sanitizer) Enabled() bool {
	return s != nil && s.enabled && len(s.filters) > 0
}

// Sanitize replaces PII in text with placeholders.
func (s *Sanitizer) Sanitize(text string) string {
	if !s.Enabled() {
		return text
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Evict old mappings if limit reached to prevent unbounded growth
	if len(s.reverse) >= maxPIIMappings {
		s.resetLocked()
	}

	result := text
	for _, f := range s.filters {
		result = f.pattern.ReplaceAllStringFunc(result, func(match string) string {
			if placeholder, ok := s.reverse[match]; ok {
				return placeholder
			}
			s.counter[f.prefix]++
			placeholder := fmt.Sprintf("[%s_%d]", f.prefix, s.counter[f.prefix])
			s.reverse[match] = placeholder
			return placeholder
		})
	}
	return result
}

func (s *Sanitizer) resetLocked() {
	s.reverse = make(map[string]string)
	s.counter = make(map[string]int)
}
