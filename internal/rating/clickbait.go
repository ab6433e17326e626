package rating

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Flag is the clickbait signal found in a title.
type Flag int

const (
	NoClickbait Flag = iota
	TriggerWord
	Punctuation
	AllCaps
)

// Suffix is appended to the bucket label; empty when nothing fired.
func (f Flag) Suffix() string {
	switch f {
	case TriggerWord:
		return " (Clickbait: trigger word)"
	case Punctuation:
		return " (Clickbait: punctuation)"
	case AllCaps:
		return " (Clickbait: ALL CAPS)"
	default:
		return ""
	}
}

const capsMinLength = 10

var shoutingMarks = []string{"!!!", "???", "!?"}

// Clickbait scans titles for trigger phrases, excessive punctuation and shouting.
type Clickbait struct {
	triggers []string
}

func NewClickbait(triggers []string) *Clickbait {
	normalized := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	return &Clickbait{triggers: normalized}
}

// Check evaluates the signals in priority order; the first match wins.
func (c *Clickbait) Check(title string) Flag {
	if title == "" {
		return NoClickbait
	}

	lower := strings.ToLower(title)
	for _, t := range c.triggers {
		if strings.Contains(lower, t) {
			return TriggerWord
		}
	}

	for _, mark := range shoutingMarks {
		if strings.Contains(title, mark) {
			return Punctuation
		}
	}

	if isUpper(title) && utf8.RuneCountInString(title) > capsMinLength {
		return AllCaps
	}
	return NoClickbait
}

// Suffix is a shortcut for Check(title).Suffix().
func (c *Clickbait) Suffix(title string) string {
	return c.Check(title).Suffix()
}

// isUpper mirrors str.isupper: at least one cased letter and no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
