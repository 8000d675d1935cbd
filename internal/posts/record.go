// Package posts discovers Markdown content files, builds normalized post
// records from them and serves ordered, cached snapshots of a collection.
package posts

import (
	"slices"
	"time"

	"github.com/goliatone/go-freeze/internal/frontmatter"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// Hero is the optional lead image of a post.
type Hero struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Record is a normalized post. Records are built once per load and never
// mutated afterwards.
type Record struct {
	Collection     string
	SourcePath     string
	ModTime        time.Time
	Slug           string
	URL            string
	Title          string
	Date           time.Time
	HasDate        bool
	DateDisplay    string
	Author         string
	AuthorInitials string
	ReadingTime    int
	Tags           []string
	Teaser         string
	Permalink      string
	Hero           *Hero
	Body           string
	FrontMatter    frontmatter.FrontMatter
	// Params holds the front matter keys the builder does not interpret.
	Params map[string]any

	titleFromSlug bool
}

// IndexEntry is the listing projection of a record.
type IndexEntry struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	DateDisplay    string   `json:"date_display"`
	URL            string   `json:"url"`
	Tags           []string `json:"tags"`
	Author         string   `json:"author"`
	AuthorInitials string   `json:"author_initials"`
}

// NavStub points at an adjacent post.
type NavStub struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Page is a single post ready for rendering.
type Page struct {
	Record *Record
	HTML   string
	TOC    []interfaces.Heading
	Prev   *NavStub
	Next   *NavStub
}

// Snapshot is the ordered, immutable result of one collection load.
type Snapshot struct {
	collection string
	records    []*Record
	positions  map[string]int
	loadedAt   time.Time
	skipped    []string
}

func newSnapshot(collection string, records []*Record, skipped []string, loadedAt time.Time) *Snapshot {
	positions := make(map[string]int, len(records))
	for i, record := range records {
		// last occurrence wins
		positions[record.Slug] = i
	}
	return &Snapshot{
		collection: collection,
		records:    records,
		positions:  positions,
		loadedAt:   loadedAt,
		skipped:    skipped,
	}
}

// Collection names the collection the snapshot was loaded from.
func (s *Snapshot) Collection() string {
	if s == nil {
		return ""
	}
	return s.collection
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns the records in publication order.
func (s *Snapshot) Records() []*Record {
	if s == nil {
		return nil
	}
	return slices.Clone(s.records)
}

// At returns the record at position i.
func (s *Snapshot) At(i int) *Record {
	if s == nil || i < 0 || i >= len(s.records) {
		return nil
	}
	return s.records[i]
}

// Lookup finds a record by slug.
func (s *Snapshot) Lookup(slug string) (*Record, int, bool) {
	if s == nil {
		return nil, -1, false
	}
	idx, ok := s.positions[slug]
	if !ok {
		return nil, -1, false
	}
	return s.records[idx], idx, true
}

// LoadedAt reports when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Skipped lists the source paths that failed to build.
func (s *Snapshot) Skipped() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.skipped)
}

func stubFor(record *Record) *NavStub {
	if record == nil {
		return nil
	}
	return &NavStub{Title: record.Title, URL: record.URL}
}
