package normalize

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SlugStrategy selects how a post slug is derived.
type SlugStrategy string

const (
	// SlugDerived builds DD-MM-YYYY-INITIALS from the post date and author.
	SlugDerived SlugStrategy = "derived"
	// SlugFilename uses the content file name without extension.
	SlugFilename SlugStrategy = "filename"
)

// ParseSlugStrategy maps a configured name onto a strategy. An empty name
// selects SlugDerived.
func ParseSlugStrategy(name string) (SlugStrategy, error) {
	switch SlugStrategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", SlugDerived:
		return SlugDerived, nil
	case SlugFilename:
		return SlugFilename, nil
	}
	return "", fmt.Errorf("normalize: unknown slug strategy %q", name)
}

// DerivedSlug formats the date as DD-MM-YYYY followed by the initials. When
// ok is false the date comes from now.
func DerivedSlug(date time.Time, ok bool, initials string, now func() time.Time) string {
	if !ok {
		if now == nil {
			now = time.Now
		}
		date = now()
	}
	return date.Format("02-01-2006") + "-" + initials
}

// FilenameSlug returns the base name of the file without its extension.
func FilenameSlug(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// CleanSlug normalises a slug into lowercase, hyphen separated form. The
// input is returned unchanged when it cannot be normalised.
func CleanSlug(value string) string {
	normalized, err := slug.Normalize(value)
	if err != nil || normalized == "" {
		return value
	}
	return normalized
}

// TitleFromSlug turns a slug into a human readable title.
func TitleFromSlug(value string) string {
	words := strings.FieldsFunc(value, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}
