package posts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-freeze/internal/frontmatter"
	"github.com/goliatone/go-freeze/internal/normalize"
)

// Front matter keys interpreted by the builder. Everything else lands in
// Record.Params.
const (
	keyTitle          = "title"
	keyDate           = "date"
	keyDateDisplay    = "date_display"
	keyAuthor         = "author"
	keyAuthorInitials = "author_initials"
	keyTeaser         = "teaser"
	keyReadingTime    = "reading_time"
	keyTags           = "tags"
	keyPermalink      = "permalink"
	keyHero           = "hero"
)

var recognizedKeys = map[string]struct{}{
	keyTitle:          {},
	keyDate:           {},
	keyDateDisplay:    {},
	keyAuthor:         {},
	keyAuthorInitials: {},
	keyTeaser:         {},
	keyReadingTime:    {},
	keyTags:           {},
	keyPermalink:      {},
	keyHero:           {},
}

// BuilderConfig describes how the files of one collection become records.
type BuilderConfig struct {
	Collection     string
	RoutePrefix    string
	ParseMode      frontmatter.Mode
	SlugStrategy   normalize.SlugStrategy
	CleanSlugs     bool
	Dates          normalize.DateOptions
	WordsPerMinute int
	TeaserLimit    int
	// Now supplies the date of undated posts under the derived slug strategy.
	Now func() time.Time
}

// Builder turns raw content files into records.
type Builder struct {
	cfg    BuilderConfig
	parser *frontmatter.Parser
}

// NewBuilder applies defaults to cfg and returns a Builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.ParseMode == "" {
		cfg.ParseMode = frontmatter.ModeLenient
	}
	if cfg.SlugStrategy == "" {
		cfg.SlugStrategy = normalize.SlugDerived
	}
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = normalize.DefaultWordsPerMinute
	}
	if cfg.TeaserLimit <= 0 {
		cfg.TeaserLimit = normalize.DefaultTeaserLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.RoutePrefix = NormalizePrefix(cfg.RoutePrefix)
	return &Builder{cfg: cfg, parser: frontmatter.NewParser(cfg.ParseMode)}
}

// NormalizePrefix returns prefix with exactly one leading and one trailing
// slash. An empty prefix is the site root.
func NormalizePrefix(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

// RoutePrefix returns the normalized route prefix of the collection.
func (b *Builder) RoutePrefix() string {
	return b.cfg.RoutePrefix
}

// URLFor returns the route path of the post with the given slug.
func (b *Builder) URLFor(slug string) string {
	return b.cfg.RoutePrefix + slug + "/"
}

// Build parses data and normalizes it into a record.
func (b *Builder) Build(file File, data []byte) (*Record, error) {
	fm, body, err := b.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("posts: build %s: %w", file.Path, err)
	}

	rawDate, _ := fm.Get(keyDate)
	date, hasDate := normalize.ParseDate(rawDate, b.cfg.Dates)

	author := fm.String(keyAuthor)
	initials := normalize.AuthorInitials(author, fm.String(keyAuthorInitials))

	slug := b.slugFor(file, date, hasDate, initials)

	dateDisplay := fm.String(keyDateDisplay)
	if dateDisplay == "" {
		dateDisplay = normalize.DisplayDate(date, hasDate)
	}

	rawReading, _ := fm.Get(keyReadingTime)
	rawTags, _ := fm.Get(keyTags)
	rawHero, _ := fm.Get(keyHero)
	text := string(body)

	record := &Record{
		Collection:     b.cfg.Collection,
		SourcePath:     file.Path,
		ModTime:        file.ModTime,
		Title:          fm.String(keyTitle),
		Date:           date,
		HasDate:        hasDate,
		DateDisplay:    dateDisplay,
		Author:         author,
		AuthorInitials: initials,
		ReadingTime:    normalize.ReadingTime(text, intValue(rawReading), b.cfg.WordsPerMinute),
		Tags:           stringList(rawTags),
		Teaser:         normalize.Teaser(fm.String(keyTeaser), text, b.cfg.TeaserLimit),
		Permalink:      fm.String(keyPermalink),
		Hero:           heroFrom(rawHero),
		Body:           text,
		FrontMatter:    fm,
		Params:         params(fm),
	}
	if record.Title == "" {
		record.titleFromSlug = true
	}
	b.assignSlug(record, slug)
	return record, nil
}

func (b *Builder) slugFor(file File, date time.Time, hasDate bool, initials string) string {
	if b.cfg.SlugStrategy == normalize.SlugFilename {
		slug := normalize.FilenameSlug(file.Path)
		if b.cfg.CleanSlugs {
			slug = normalize.CleanSlug(slug)
		}
		return slug
	}
	return normalize.DerivedSlug(date, hasDate, initials, b.cfg.Now)
}

// withSlug returns a copy of record carrying slug, with the URL and any
// slug-derived title recomputed.
func (b *Builder) withSlug(record *Record, slug string) *Record {
	clone := *record
	b.assignSlug(&clone, slug)
	return &clone
}

func (b *Builder) assignSlug(record *Record, slug string) {
	record.Slug = slug
	record.URL = b.URLFor(slug)
	if record.titleFromSlug {
		record.Title = normalize.TitleFromSlug(slug)
	}
}

func params(fm frontmatter.FrontMatter) map[string]any {
	out := make(map[string]any)
	for _, key := range fm.Keys() {
		if _, ok := recognizedKeys[key]; ok {
			continue
		}
		value, _ := fm.Get(key)
		out[key] = value
	}
	return out
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0
		}
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(math.Round(v))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func stringList(value any) []string {
	var raw []string
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			raw = append(raw, fmt.Sprint(item))
		}
	default:
		raw = []string{fmt.Sprint(v)}
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func heroFrom(value any) *Hero {
	switch v := value.(type) {
	case string:
		if src := strings.TrimSpace(v); src != "" {
			return &Hero{Src: src}
		}
	case map[string]any:
		src, _ := v["src"].(string)
		alt, _ := v["alt"].(string)
		if src = strings.TrimSpace(src); src != "" {
			return &Hero{Src: src, Alt: strings.TrimSpace(alt)}
		}
	}
	return nil
}
