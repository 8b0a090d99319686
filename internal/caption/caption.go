package caption

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"postline/internal/config"
)

// Policy holds the caption defaults applied at publish time.
type Policy struct {
	Default  string
	MaxRunes int
}

// PolicyFromConfig builds a Policy from the [upload] section.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{
		Default:  cfg.Upload.DefaultCaption,
		MaxRunes: cfg.Upload.CaptionMaxRunes,
	}
}

// Resolve returns the caption that should be submitted for raw.
func (p Policy) Resolve(raw string) string {
	text := Clean(raw)
	if text == "" {
		text = Clean(p.Default)
	}
	return Truncate(text, p.MaxRunes)
}

// UsesDefault reports whether raw would be replaced by the default caption.
func (p Policy) UsesDefault(raw string) bool {
	return Clean(raw) == ""
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Clean normalizes text to NFC, drops control characters except newlines and
// tabs, unifies line endings, and trims surrounding whitespace.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = norm.NFC.String(text)
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, text)
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate cuts text to at most limit runes. A limit <= 0 disables truncation.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return strings.TrimRightFunc(text[:idx], unicode.IsSpace)
		}
		count++
	}
	return text
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// Hashtags returns the distinct hashtags in text, in order of appearance.
func Hashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, tag := range matches {
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
