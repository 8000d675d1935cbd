package normalize

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	stripmd "github.com/writeas/go-strip-markdown"
)

const (
	// DefaultWordsPerMinute is the reading speed used when none is configured.
	DefaultWordsPerMinute = 200
	// DefaultTeaserLimit is the teaser length in characters.
	DefaultTeaserLimit = 240
	// Ellipsis marks a truncated teaser.
	Ellipsis = "…"
	// MissingInitials stands in for an author without alphabetic words.
	MissingInitials = "NA"
)

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	alphaWordPattern = regexp.MustCompile(`\p{L}+`)
	paragraphBreak   = regexp.MustCompile(`\n[ \t\r]*\n`)
)

// AuthorInitials derives the author's initials. A non-empty override wins
// and is upper-cased. Otherwise the first letter of the first and last
// alphabetic words are used; a single word yields one letter and a name
// without alphabetic words yields MissingInitials.
func AuthorInitials(name, override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return strings.ToUpper(trimmed)
	}
	words := alphaWordPattern.FindAllString(name, -1)
	switch len(words) {
	case 0:
		return MissingInitials
	case 1:
		return strings.ToUpper(firstRune(words[0]))
	default:
		return strings.ToUpper(firstRune(words[0]) + firstRune(words[len(words)-1]))
	}
}

func firstRune(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(r)
}

// ReadingTime estimates minutes needed to read body. A positive override
// wins. The estimate rounds half to even and is never below one minute.
func ReadingTime(body string, override, wordsPerMinute int) int {
	if override > 0 {
		return override
	}
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	words := len(wordPattern.FindAllStringIndex(body, -1))
	minutes := int(math.RoundToEven(float64(words) / float64(wordsPerMinute)))
	return max(minutes, 1)
}

// Teaser returns the explicit teaser when given, otherwise the plain text of
// the body's first non-blank paragraph truncated at a word boundary to at most
// limit characters. The Ellipsis is appended only when text was cut.
func Teaser(explicit, body string, limit int) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if limit <= 0 {
		limit = DefaultTeaserLimit
	}

	for _, paragraph := range paragraphBreak.Split(strings.ReplaceAll(body, "\r\n", "\n"), -1) {
		text := collapseSpace(stripmd.Strip(paragraph))
		if text == "" {
			continue
		}
		return truncate(text, limit)
	}
	return ""
}

func collapseSpace(value string) string {
	return strings.Join(strings.FieldsFunc(value, unicode.IsSpace), " ")
}

// truncate cuts text to at most limit runes, backing off to the last word
// boundary when one exists, and appends the Ellipsis.
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	trimmed := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if trimmed == "" {
		trimmed = strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace)
	}
	return trimmed + Ellipsis
}
